package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and state locations.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Storage selects the object store holding source videos and dubbed artifacts.
type Storage struct {
	Backend      string `toml:"backend"` // local, gcs, cos
	Bucket       string `toml:"bucket"`
	LocalRoot    string `toml:"local_root"`
	COSRegion    string `toml:"cos_region"`
	COSSecretID  string `toml:"cos_secret_id"`
	COSSecretKey string `toml:"cos_secret_key"`
}

// Transcription configures the speech recognition backend.
type Transcription struct {
	Provider            string `toml:"provider"` // whisperx, openai
	Language            string `toml:"language"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHuggingFace string `toml:"whisperx_hf_token"`
}

// OpenAI holds credentials shared by the OpenAI speech and transcription backends.
type OpenAI struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Organization string `toml:"organization"`
}

// LLM contains chat-completion settings used for translation and voice classification.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	VoiceModel     string `toml:"voice_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Voice configures how the speaker's voice profile is chosen.
type Voice struct {
	Profiler string `toml:"profiler"` // pitch, llm
	Default  string `toml:"default"`
}

// TTS configures the speech synthesis backend.
type TTS struct {
	Provider       string `toml:"provider"` // google, openai
	GoogleAPIKey   string `toml:"google_api_key"`
	GoogleBaseURL  string `toml:"google_base_url"`
	VoiceFamily    string `toml:"voice_family"`
	AudioEncoding  string `toml:"audio_encoding"`
	OpenAIModel    string `toml:"openai_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Text configures how translated text is chunked for synthesis.
type Text struct {
	MaxChars       int    `toml:"max_chars"`
	OversizePolicy string `toml:"oversize_policy"` // split, keep, reject
}

// Alignment configures the duration aligner.
type Alignment struct {
	Strategy   string  `toml:"strategy"` // remap, atempo
	Tolerance  float64 `toml:"tolerance"`
	SampleRate int     `toml:"sample_rate"`
	Channels   int     `toml:"channels"`
}

// Output configures encoding of the dubbed audio artifact.
type Output struct {
	MP3Bitrate string `toml:"mp3_bitrate"`
}

// Concurrency caps the worker pools used for fan-out.
type Concurrency struct {
	LanguageWorkers int `toml:"language_workers"`
	ChunkWorkers    int `toml:"chunk_workers"`
}

// Retry bounds the backoff applied to transient external failures.
type Retry struct {
	Attempts    int `toml:"attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// LipSync configures the optional lip-sync step.
type LipSync struct {
	Enabled             bool   `toml:"enabled"`
	Provider            string `toml:"provider"` // http, wav2lip
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	Model               string `toml:"model"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	Wav2LipDir          string `toml:"wav2lip_dir"`
	Wav2LipCheckpoint   string `toml:"wav2lip_checkpoint"`
	PythonBinary        string `toml:"python_binary"`
}

// API contains HTTP server settings for `dubline serve`.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Notifications configures ntfy push notifications for finished runs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dubline.
//
// Configuration sections by subsystem:
//   - Paths: work, log, and state directories
//   - Storage: object store backend and bucket
//   - Transcription: WhisperX or OpenAI Whisper
//   - OpenAI: credentials for the OpenAI speech and whisper backends
//   - LLM: translation and voice classification chat model
//   - Voice: voice profile selection
//   - TTS: speech synthesis backend
//   - Text: chunk budget and oversized sentence policy
//   - Alignment: stretch strategy, tolerance, and nominal PCM format
//   - Output: artifact encoding
//   - Concurrency: worker pool caps
//   - Retry: transient failure backoff
//   - LipSync: optional lip-sync step
//   - Languages: target language name to BCP-47 code table
//   - API: HTTP server for `dubline serve`
//   - Notifications: ntfy topic for run completion
//   - Logging: log format and level
type Config struct {
	Paths         Paths             `toml:"paths"`
	Storage       Storage           `toml:"storage"`
	Transcription Transcription     `toml:"transcription"`
	OpenAI        OpenAI            `toml:"openai"`
	LLM           LLM               `toml:"llm"`
	Voice         Voice             `toml:"voice"`
	TTS           TTS               `toml:"tts"`
	Text          Text              `toml:"text"`
	Alignment     Alignment         `toml:"alignment"`
	Output        Output            `toml:"output"`
	Concurrency   Concurrency       `toml:"concurrency"`
	Retry         Retry             `toml:"retry"`
	LipSync       LipSync           `toml:"lipsync"`
	Languages     map[string]string `toml:"languages"`
	API           API               `toml:"api"`
	Notifications Notifications     `toml:"notifications"`
	Logging       Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dubline/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A [languages] table replaces the default table rather than merging into it.
		cfg.Languages = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dubline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == StorageLocal {
		if err := os.MkdirAll(c.Storage.LocalRoot, 0o755); err != nil {
			return fmt.Errorf("create storage root %q: %w", c.Storage.LocalRoot, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for reference duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// LedgerPath returns the SQLite database path for the run ledger.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// RunDir returns the working directory for a single run.
func (c *Config) RunDir(runID string) string {
	return filepath.Join(c.Paths.WorkDir, runID)
}

// RetryBackoff returns the retry settings as durations.
func (c *Config) RetryBackoff() (attempts int, base, max time.Duration) {
	return c.Retry.Attempts,
		time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}

// LanguageNames returns the configured language names in sorted order.
func (c *Config) LanguageNames() []string {
	names := make([]string, 0, len(c.Languages))
	for name := range c.Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
