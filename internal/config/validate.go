package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is structurally usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateText(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateLipSync(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	return c.validateLogging()
}

// ValidateProviders checks that each selected backend has the credentials it
// needs. Commands that run the dubbing pipeline call it after Load.
func (c *Config) ValidateProviders() error {
	initHint := c.initHint()
	switch c.Storage.Backend {
	case StorageCOS:
		if c.Storage.COSSecretID == "" || c.Storage.COSSecretKey == "" {
			return fmt.Errorf("storage.cos_secret_id and storage.cos_secret_key are required for the cos backend. Set COS_SECRET_ID/COS_SECRET_KEY env vars or edit %s", initHint)
		}
	}
	if c.Transcription.Provider == TranscriptionOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required for openai transcription. Set OPENAI_API_KEY env var or edit %s", initHint)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for translation. Set OPENROUTER_API_KEY env var or edit %s", initHint)
	}
	switch c.TTS.Provider {
	case TTSGoogle:
		if c.TTS.GoogleAPIKey == "" {
			return fmt.Errorf("tts.google_api_key is required. Set GOOGLE_API_KEY env var or edit %s", initHint)
		}
	case TTSOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required for openai speech. Set OPENAI_API_KEY env var or edit %s", initHint)
		}
	}
	if c.LipSync.Enabled && c.LipSync.Provider == LipSyncHTTP && c.LipSync.APIKey == "" {
		return fmt.Errorf("lipsync.api_key is required when lipsync.enabled is true. Set LIPSYNC_API_KEY env var or edit %s", initHint)
	}
	return nil
}

func (c *Config) initHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		path = "~/.config/dubline/config.toml"
	}
	return path + " (create with 'dubline config init')"
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalRoot == "" {
			return errors.New("storage.local_root must be set for the local backend")
		}
	case StorageGCS:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for the gcs backend")
		}
	case StorageCOS:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for the cos backend")
		}
		if c.Storage.COSRegion == "" {
			return errors.New("storage.cos_region must be set for the cos backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of local, gcs, cos (got %q)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case TranscriptionWhisperX, TranscriptionOpenAI:
	default:
		return fmt.Errorf("transcription.provider must be whisperx or openai (got %q)", c.Transcription.Provider)
	}
	switch c.Transcription.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.whisperx_vad_method must be silero or pyannote (got %q)", c.Transcription.WhisperXVADMethod)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateVoice() error {
	switch c.Voice.Profiler {
	case ProfilerPitch, ProfilerLLM:
	default:
		return fmt.Errorf("voice.profiler must be pitch or llm (got %q)", c.Voice.Profiler)
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Provider {
	case TTSGoogle, TTSOpenAI:
	default:
		return fmt.Errorf("tts.provider must be google or openai (got %q)", c.TTS.Provider)
	}
	switch c.TTS.AudioEncoding {
	case "LINEAR16", "MP3":
	default:
		return fmt.Errorf("tts.audio_encoding must be LINEAR16 or MP3 (got %q)", c.TTS.AudioEncoding)
	}
	if c.TTS.TimeoutSeconds <= 0 {
		return errors.New("tts.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateText() error {
	if c.Text.MaxChars < 1 {
		return errors.New("text.max_chars must be positive")
	}
	switch c.Text.OversizePolicy {
	case "split", "keep", "reject":
	default:
		return fmt.Errorf("text.oversize_policy must be split, keep, or reject (got %q)", c.Text.OversizePolicy)
	}
	return nil
}

func (c *Config) validateAlignment() error {
	switch c.Alignment.Strategy {
	case "remap", "atempo":
	default:
		return fmt.Errorf("alignment.strategy must be remap or atempo (got %q)", c.Alignment.Strategy)
	}
	if math.IsNaN(c.Alignment.Tolerance) || c.Alignment.Tolerance < 0 || c.Alignment.Tolerance >= 1 {
		return errors.New("alignment.tolerance must be between 0 and 1")
	}
	if c.Alignment.SampleRate < 8000 {
		return errors.New("alignment.sample_rate must be at least 8000")
	}
	if c.Alignment.Channels < 1 || c.Alignment.Channels > 2 {
		return errors.New("alignment.channels must be 1 or 2")
	}
	if strings.TrimSpace(c.Output.MP3Bitrate) == "" {
		return errors.New("output.mp3_bitrate must be set")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Concurrency.LanguageWorkers < 1 {
		return errors.New("concurrency.language_workers must be positive")
	}
	if c.Concurrency.ChunkWorkers < 1 {
		return errors.New("concurrency.chunk_workers must be positive")
	}
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be positive")
	}
	if c.Retry.BaseDelayMS < 0 || c.Retry.MaxDelayMS < 0 {
		return errors.New("retry delays must be non-negative")
	}
	if c.Retry.MaxDelayMS > 0 && c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		return errors.New("retry.max_delay_ms must not be less than retry.base_delay_ms")
	}
	return nil
}

func (c *Config) validateLipSync() error {
	if !c.LipSync.Enabled {
		return nil
	}
	switch c.LipSync.Provider {
	case LipSyncHTTP:
		if c.LipSync.BaseURL == "" {
			return errors.New("lipsync.base_url must be set when lipsync.provider is http")
		}
	case LipSyncWav2Lip:
		if c.LipSync.Wav2LipDir == "" {
			return errors.New("lipsync.wav2lip_dir must be set when lipsync.provider is wav2lip")
		}
	default:
		return fmt.Errorf("lipsync.provider must be http or wav2lip (got %q)", c.LipSync.Provider)
	}
	if c.LipSync.PollIntervalSeconds <= 0 {
		return errors.New("lipsync.poll_interval_seconds must be positive")
	}
	if c.LipSync.TimeoutSeconds <= 0 {
		return errors.New("lipsync.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if len(c.Languages) == 0 {
		return errors.New("languages must define at least one target language")
	}
	for name, code := range c.Languages {
		if code == "" {
			return fmt.Errorf("languages.%s must map to a language code", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
