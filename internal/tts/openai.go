package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"dubline/internal/services"
	"dubline/internal/voice"
)

// OpenAIConfig configures the OpenAI speech backend.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Organization string
	Model        string
	Timeout      time.Duration
}

// profileVoices maps profiles onto OpenAI's gendered voices.
var profileVoices = map[voice.Profile]openai.SpeechVoice{
	voice.Aoede:  openai.VoiceNova,
	voice.Kore:   openai.VoiceShimmer,
	voice.Leda:   openai.VoiceAlloy,
	voice.Zephyr: openai.VoiceNova,
	voice.Puck:   openai.VoiceEcho,
	voice.Charon: openai.VoiceOnyx,
	voice.Fenrir: openai.VoiceOnyx,
	voice.Orus:   openai.VoiceFable,
}

// OpenAI synthesizes speech with the OpenAI audio API.
type OpenAI struct {
	client *openai.Client
	model  openai.SpeechModel
}

// NewOpenAI builds the OpenAI speech backend.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	clientCfg.OrgID = strings.TrimSpace(cfg.Organization)
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := openai.SpeechModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = openai.TTSModel1
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: model}
}

// VoiceFor returns the OpenAI voice used for profile.
func VoiceFor(profile voice.Profile) openai.SpeechVoice {
	if v, ok := profileVoices[profile]; ok {
		return v
	}
	return openai.VoiceAlloy
}

// Encoding implements synth.TextToSpeech.
func (o *OpenAI) Encoding() string { return EncodingMP3 }

// Synthesize implements synth.TextToSpeech. OpenAI voices are multilingual so
// the language code only shapes error messages.
func (o *OpenAI) Synthesize(ctx context.Context, text, languageCode string, profile voice.Profile) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          VoiceFor(profile),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, services.OpenAIError("tts", err)
	}
	defer resp.Close()
	payload, err := io.ReadAll(resp)
	if err != nil {
		return nil, services.Transient(services.Wrap(services.ErrExternalTool, "tts", "openai", fmt.Sprintf("read %s audio", languageCode), err))
	}
	return payload, nil
}
