package testsupport

import (
	"path/filepath"
	"testing"

	"dubline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Storage is local, the bucket is "media", and worker pools are small.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Storage.Backend = config.StorageLocal
	cfgVal.Storage.LocalRoot = filepath.Join(base, "storage")
	cfgVal.Storage.Bucket = "media"
	cfgVal.LLM.APIKey = "test"
	cfgVal.TTS.GoogleAPIKey = "test"
	cfgVal.Alignment.SampleRate = 8000
	cfgVal.Concurrency.LanguageWorkers = 2
	cfgVal.Concurrency.ChunkWorkers = 2
	cfgVal.Retry.Attempts = 2
	cfgVal.Retry.BaseDelayMS = 1
	cfgVal.Retry.MaxDelayMS = 2
	cfgVal.LipSync.PollIntervalSeconds = 1
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLanguages replaces the target language table.
func WithLanguages(table map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Languages = table
	}
}

// WithChunkBudget sets the chunk character budget.
func WithChunkBudget(maxChars int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Text.MaxChars = maxChars
	}
}

// WithLipSync enables the lip-sync step.
func WithLipSync() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LipSync.Enabled = true
		b.cfg.LipSync.BaseURL = "http://127.0.0.1:0"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
