package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dubline/internal/config"
	"dubline/internal/deps"
	"dubline/internal/services"
	"dubline/internal/services/llm"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set llm.api_key and tts.google_api_key (or export OPENROUTER_API_KEY and GOOGLE_API_KEY) before running dubline.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool
	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Languages: %s\n", strings.Join(cfg.LanguageNames(), ", "))
			if err := cfg.ValidateProviders(); err != nil {
				fmt.Fprintf(out, "Warning: %v\n", err)
			}
			if checkLLM {
				if err := checkLLMReachable(cmd.Context(), cfg); err != nil {
					return err
				}
				fmt.Fprintln(out, "LLM: API reachable")
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			fmt.Fprintln(out, renderDependencies(statuses))
			for _, missing := range deps.Missing(statuses) {
				fmt.Fprintf(out, "Warning: %s unavailable: %s\n", missing.Name, missing.Detail)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Send a test request to the configured LLM endpoint")
	return cmd
}

// checkLLMReachable makes a single attempt against the LLM endpoint.
func checkLLMReachable(ctx context.Context, cfg *config.Config) error {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return fmt.Errorf("llm check: api key missing")
	}
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client := newLLMClient(cfg, llm.WithRetryPolicy(services.RetryPolicy{Attempts: 1}))
	if err := client.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("llm check: %w", err)
	}
	return nil
}

func renderDependencies(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "ok"
		if !s.Available {
			state = "missing"
		}
		rows = append(rows, []string{s.Name, s.Command, state, s.Description})
	}
	return renderTable(
		[]column{{title: "Dependency"}, {title: "Command"}, {title: "State"}, {title: "Used for"}},
		rows,
	)
}
