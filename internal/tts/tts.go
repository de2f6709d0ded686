package tts

import (
	"context"
	"time"

	"dubline/internal/config"
	"dubline/internal/voice"
)

// Audio containers returned by the backends.
const (
	EncodingWAV = "wav"
	EncodingMP3 = "mp3"
	EncodingOgg = "ogg"
)

// Provider is the contract shared by the backends in this package.
type Provider interface {
	Synthesize(ctx context.Context, text, languageCode string, profile voice.Profile) ([]byte, error)
	Encoding() string
}

// FromConfig builds the provider selected by cfg.TTS.
func FromConfig(cfg *config.Config) Provider {
	timeout := time.Duration(cfg.TTS.TimeoutSeconds) * time.Second
	switch cfg.TTS.Provider {
	case config.TTSOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Organization: cfg.OpenAI.Organization,
			Model:        cfg.TTS.OpenAIModel,
			Timeout:      timeout,
		})
	default:
		return NewGoogle(GoogleConfig{
			APIKey:        cfg.TTS.GoogleAPIKey,
			BaseURL:       cfg.TTS.GoogleBaseURL,
			VoiceFamily:   cfg.TTS.VoiceFamily,
			AudioEncoding: cfg.TTS.AudioEncoding,
			Timeout:       timeout,
		})
	}
}
