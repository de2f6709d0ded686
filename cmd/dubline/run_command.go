package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"dubline/internal/api"
	"dubline/internal/dubbing"
	"dubline/internal/ledger"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var bucket string
	var languages []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run <video-key>",
		Short: "Dub a source video into every configured language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			rt, err := buildRuntime(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, runErr := rt.pipeline.Run(runCtx, dubbing.Request{
				RunID:     runID,
				Bucket:    bucket,
				VideoKey:  strings.TrimSpace(args[0]),
				Languages: languages,
			})
			if report == nil {
				return runErr
			}
			if err := printReport(cmd, rt.ledger, report.RunID, jsonOutput); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if report.Status != ledger.StatusCompleted {
				return fmt.Errorf("run %s finished %s: %d of %d languages failed", report.RunID, report.Status, len(report.Failed()), len(report.Languages))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: random UUID)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket holding the video (default: storage.bucket)")
	cmd.Flags().StringSliceVarP(&languages, "language", "l", nil, "Target language name or code (repeatable; default: all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func newLanguageCommand(ctx *commandContext) *cobra.Command {
	var bucket string
	var transcriptFile string
	var videoKey string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "language <run-id> <language>",
		Short: "Dub one more language for an existing run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			var transcript string
			if path := strings.TrimSpace(transcriptFile); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				transcript = string(data)
			}
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			rt, err := buildRuntime(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, runErr := rt.pipeline.RunLanguage(runCtx, dubbing.LanguageRequest{
				RunID:      strings.TrimSpace(args[0]),
				Bucket:     bucket,
				Language:   args[1],
				Transcript: transcript,
				VideoKey:   videoKey,
			})
			if result.Name == "" {
				return runErr
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromLanguageRecord(result.Record(args[0])))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %s\n", result.Name, result.Code, statusLabel(string(result.Status), shouldColorize(out)))
			if result.AudioURI != "" {
				fmt.Fprintf(out, "Audio: %s\n", result.AudioURI)
			}
			if result.VideoURI != "" {
				fmt.Fprintf(out, "Video: %s\n", result.VideoURI)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket holding the run (default: storage.bucket)")
	cmd.Flags().StringVar(&transcriptFile, "transcript-file", "", "Use this transcript instead of transcribing the reference")
	cmd.Flags().StringVar(&videoKey, "video-key", "", "Source video key; enables lip sync when lipsync.enabled is set")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, store *ledger.Store, runID string, jsonOutput bool) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		if errors.Is(err, ledger.ErrRunNotFound) {
			return nil
		}
		return err
	}
	dto := api.FromRun(run)
	if jsonOutput {
		return writeJSON(cmd, dto)
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderRunDetail(dto, shouldColorize(out)))
	return nil
}
