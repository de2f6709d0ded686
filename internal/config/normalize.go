package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeProviders()
	c.normalizeLanguages()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = 10
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Storage.LocalRoot, err = expandPath(c.Storage.LocalRoot); err != nil {
		return fmt.Errorf("storage.local_root: %w", err)
	}
	if c.LipSync.Wav2LipDir, err = expandPath(c.LipSync.Wav2LipDir); err != nil {
		return fmt.Errorf("lipsync.wav2lip_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = lowerTrim(c.Storage.Backend)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.COSRegion = strings.TrimSpace(c.Storage.COSRegion)
	c.Storage.COSSecretID = envFallback(c.Storage.COSSecretID, "COS_SECRET_ID")
	c.Storage.COSSecretKey = envFallback(c.Storage.COSSecretKey, "COS_SECRET_KEY")
}

func (c *Config) normalizeProviders() {
	c.Transcription.Provider = lowerTrim(c.Transcription.Provider)
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	c.Transcription.WhisperXVADMethod = lowerTrim(c.Transcription.WhisperXVADMethod)
	if c.Transcription.WhisperXVADMethod == "" {
		c.Transcription.WhisperXVADMethod = defaultVADMethod
	}
	c.Transcription.WhisperXHuggingFace = envFallback(c.Transcription.WhisperXHuggingFace, "HF_TOKEN")

	c.OpenAI.APIKey = envFallback(c.OpenAI.APIKey, "OPENAI_API_KEY")
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)

	c.LLM.APIKey = envFallback(c.LLM.APIKey, "OPENROUTER_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.VoiceModel = strings.TrimSpace(c.LLM.VoiceModel)
	if c.LLM.VoiceModel == "" {
		c.LLM.VoiceModel = c.LLM.Model
	}

	c.Voice.Profiler = lowerTrim(c.Voice.Profiler)
	c.Voice.Default = strings.TrimSpace(c.Voice.Default)
	if c.Voice.Default == "" {
		c.Voice.Default = defaultVoiceProfile
	}

	c.TTS.Provider = lowerTrim(c.TTS.Provider)
	c.TTS.GoogleAPIKey = envFallback(c.TTS.GoogleAPIKey, "GOOGLE_API_KEY")
	c.TTS.GoogleBaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.GoogleBaseURL), "/")
	if c.TTS.GoogleBaseURL == "" {
		c.TTS.GoogleBaseURL = defaultGoogleTTSURL
	}
	c.TTS.VoiceFamily = strings.TrimSpace(c.TTS.VoiceFamily)
	if c.TTS.VoiceFamily == "" {
		c.TTS.VoiceFamily = defaultVoiceFamily
	}
	c.TTS.AudioEncoding = strings.ToUpper(strings.TrimSpace(c.TTS.AudioEncoding))

	c.Text.OversizePolicy = lowerTrim(c.Text.OversizePolicy)
	c.Alignment.Strategy = lowerTrim(c.Alignment.Strategy)
	c.Output.MP3Bitrate = lowerTrim(c.Output.MP3Bitrate)

	c.LipSync.Provider = lowerTrim(c.LipSync.Provider)
	c.LipSync.BaseURL = strings.TrimRight(strings.TrimSpace(c.LipSync.BaseURL), "/")
	c.LipSync.APIKey = envFallback(c.LipSync.APIKey, "LIPSYNC_API_KEY")
	c.LipSync.PythonBinary = strings.TrimSpace(c.LipSync.PythonBinary)
	if c.LipSync.PythonBinary == "" {
		c.LipSync.PythonBinary = "python3"
	}

	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = envFallback(c.API.Token, "DUBLINE_API_TOKEN")
}

func (c *Config) normalizeLanguages() {
	if len(c.Languages) == 0 {
		c.Languages = DefaultLanguages()
		return
	}
	cleaned := make(map[string]string, len(c.Languages))
	for name, code := range c.Languages {
		name = strings.TrimSpace(name)
		code = strings.TrimSpace(code)
		if name == "" {
			continue
		}
		cleaned[name] = code
	}
	c.Languages = cleaned
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = lowerTrim(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = lowerTrim(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func lowerTrim(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(key))
}
