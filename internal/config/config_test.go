package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubline/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("OPENROUTER_API_KEY", "router-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "dubline", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.TTS.GoogleAPIKey != "google-key" {
		t.Fatalf("expected google key from env, got %q", cfg.TTS.GoogleAPIKey)
	}
	if cfg.LLM.APIKey != "router-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.VoiceModel != cfg.LLM.Model {
		t.Fatalf("expected voice model to default to llm model, got %q", cfg.LLM.VoiceModel)
	}
	if cfg.Text.MaxChars != 4500 {
		t.Fatalf("unexpected max chars: %d", cfg.Text.MaxChars)
	}
	if cfg.Alignment.Tolerance != 0.01 {
		t.Fatalf("unexpected tolerance: %v", cfg.Alignment.Tolerance)
	}
	if got := cfg.Languages["Deutsch"]; got != "de-DE" {
		t.Fatalf("expected Deutsch to map to de-DE, got %q", got)
	}
	if err := cfg.ValidateProviders(); err != nil {
		t.Fatalf("ValidateProviders failed: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Paths.StateDir, cfg.Storage.LocalRoot} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path %q", cfg.LedgerPath())
	}
}

func TestLoadCustomPathReplacesLanguageTable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "dubline.toml")
	content := `
[text]
max_chars = 200
oversize_policy = "REJECT"

[alignment]
strategy = "atempo"

[languages]
Italiano = "it-IT"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Text.MaxChars != 200 || cfg.Text.OversizePolicy != "reject" {
		t.Fatalf("unexpected text config: %+v", cfg.Text)
	}
	if cfg.Alignment.Strategy != "atempo" {
		t.Fatalf("unexpected strategy %q", cfg.Alignment.Strategy)
	}
	if len(cfg.Languages) != 1 || cfg.Languages["Italiano"] != "it-IT" {
		t.Fatalf("expected language table to be replaced, got %v", cfg.Languages)
	}
	if names := cfg.LanguageNames(); len(names) != 1 || names[0] != "Italiano" {
		t.Fatalf("unexpected language names %v", names)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max chars", func(c *config.Config) { c.Text.MaxChars = 0 }, "text.max_chars"},
		{"oversize policy", func(c *config.Config) { c.Text.OversizePolicy = "truncate" }, "text.oversize_policy"},
		{"strategy", func(c *config.Config) { c.Alignment.Strategy = "rubberband" }, "alignment.strategy"},
		{"tolerance", func(c *config.Config) { c.Alignment.Tolerance = -0.5 }, "alignment.tolerance"},
		{"storage backend", func(c *config.Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"gcs bucket", func(c *config.Config) { c.Storage.Backend = config.StorageGCS }, "storage.bucket"},
		{"language workers", func(c *config.Config) { c.Concurrency.LanguageWorkers = 0 }, "concurrency.language_workers"},
		{"lipsync url", func(c *config.Config) { c.LipSync.Enabled = true }, "lipsync.base_url"},
		{"languages", func(c *config.Config) { c.Languages = map[string]string{} }, "languages"},
		{"retry delay", func(c *config.Config) { c.Retry.MaxDelayMS = 10; c.Retry.BaseDelayMS = 100 }, "retry.max_delay_ms"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateProvidersRequiresCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	if err := cfg.ValidateProviders(); err == nil || !strings.Contains(err.Error(), "tts.google_api_key") {
		t.Fatalf("expected google key error, got %v", err)
	}
	cfg.TTS.Provider = config.TTSOpenAI
	if err := cfg.ValidateProviders(); err == nil || !strings.Contains(err.Error(), "openai.api_key") {
		t.Fatalf("expected openai key error, got %v", err)
	}
	cfg.OpenAI.APIKey = "sk-test"
	if err := cfg.ValidateProviders(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if cfg.Text.MaxChars != def.Text.MaxChars || cfg.Alignment.SampleRate != def.Alignment.SampleRate {
		t.Fatalf("sample diverges from defaults: %+v %+v", cfg.Text, cfg.Alignment)
	}
	if len(cfg.Languages) != len(def.Languages) {
		t.Fatalf("sample languages diverge: %v", cfg.Languages)
	}
}

func TestExpandPathHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/work")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "work") {
		t.Fatalf("unexpected path %q", got)
	}
}
