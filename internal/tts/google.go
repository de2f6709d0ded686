package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"dubline/internal/services"
	"dubline/internal/voice"
)

const defaultGoogleBaseURL = "https://texttospeech.googleapis.com/v1"

// GoogleConfig configures the Cloud Text-to-Speech backend.
type GoogleConfig struct {
	APIKey      string
	BaseURL     string
	VoiceFamily string
	// AudioEncoding is LINEAR16, MP3 or OGG_OPUS.
	AudioEncoding string
	Timeout       time.Duration
}

// Google synthesizes speech with Google Cloud Text-to-Speech.
type Google struct {
	cfg    GoogleConfig
	client *resty.Client
}

// NewGoogle builds the Google backend.
func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGoogleBaseURL
	}
	if cfg.VoiceFamily == "" {
		cfg.VoiceFamily = "Chirp3-HD"
	}
	cfg.AudioEncoding = strings.ToUpper(strings.TrimSpace(cfg.AudioEncoding))
	if cfg.AudioEncoding == "" {
		cfg.AudioEncoding = "LINEAR16"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Google{cfg: cfg, client: client}
}

// VoiceName returns the Google voice identifier for a language and profile.
func (g *Google) VoiceName(languageCode string, profile voice.Profile) string {
	return fmt.Sprintf("%s-%s-%s", languageCode, g.cfg.VoiceFamily, profile)
}

// Encoding implements synth.TextToSpeech.
func (g *Google) Encoding() string {
	switch g.cfg.AudioEncoding {
	case "MP3":
		return EncodingMP3
	case "OGG_OPUS":
		return EncodingOgg
	default:
		return EncodingWAV
	}
}

type synthesizeRequest struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type audioConfig struct {
	AudioEncoding string `json:"audioEncoding"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize implements synth.TextToSpeech.
func (g *Google) Synthesize(ctx context.Context, text, languageCode string, profile voice.Profile) ([]byte, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "google", "api key required", nil)
	}
	if !profile.Valid() {
		return nil, services.Wrap(services.ErrValidation, "tts", "google", fmt.Sprintf("unknown voice profile %q", profile), nil)
	}
	body := synthesizeRequest{
		Input: synthesisInput{Text: text},
		Voice: voiceSelection{
			LanguageCode: languageCode,
			Name:         g.VoiceName(languageCode, profile),
		},
		AudioConfig: audioConfig{AudioEncoding: g.cfg.AudioEncoding},
	}
	var result synthesizeResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.cfg.APIKey).
		SetBody(body).
		SetResult(&result).
		Post("/text:synthesize")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Transient(services.Wrap(services.ErrExternalTool, "tts", "google", "request failed", err))
	}
	if resp.IsError() {
		return nil, services.StatusError("tts", "google", resp.StatusCode(), resp.String())
	}
	if result.AudioContent == "" {
		return nil, services.Wrap(services.ErrExternalTool, "tts", "google", "empty audioContent", nil)
	}
	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "tts", "google", "decode audioContent", err)
	}
	return audio, nil
}
