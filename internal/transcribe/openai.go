package transcribe

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"dubline/internal/language"
	"dubline/internal/logging"
	"dubline/internal/services"
)

// OpenAIConfig configures the Whisper API backend.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Organization string
}

// OpenAI transcribes through the hosted Whisper endpoint.
type OpenAI struct {
	client    *openai.Client
	localizer Localizer
	policy    services.RetryPolicy
	logger    *slog.Logger
}

// NewOpenAI builds the hosted Whisper transcriber.
func NewOpenAI(cfg OpenAIConfig, localizer Localizer, policy services.RetryPolicy, logger *slog.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	clientCfg.OrgID = strings.TrimSpace(cfg.Organization)
	return &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		localizer: localizer,
		policy:    policy,
		logger:    logging.NewComponentLogger(logger, "whisper"),
	}
}

// Transcribe implements the pipeline's Transcriber contract.
func (o *OpenAI) Transcribe(ctx context.Context, audioURI, languageHint string) (string, error) {
	source, err := o.localizer.Localize(ctx, audioURI)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "transcribe", "localize", audioURI, err)
	}
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: source,
		Language: language.ToISO2(languageHint),
	}
	var text string
	err = services.Retry(ctx, o.policy, func(ctx context.Context) error {
		resp, err := o.client.CreateTranscription(ctx, req)
		if err != nil {
			return services.OpenAIError("transcribe", err)
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, o.logger).Info("transcription complete",
		logging.String("model", openai.Whisper1),
		logging.Int("characters", len([]rune(text))),
	)
	return text, nil
}
