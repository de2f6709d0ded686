package voice

import (
	"context"
	"fmt"
	"log/slog"

	"dubline/internal/logging"
	"dubline/internal/services"
)

// Chooser asks a chat model to pick a profile given a description of the speaker.
type Chooser interface {
	ChooseVoice(ctx context.Context, description string, options []string) (string, error)
}

// LLMProfiler combines pitch analysis with a chat model decision.
type LLMProfiler struct {
	analyzer *Analyzer
	chooser  Chooser
	logger   *slog.Logger
}

// NewLLMProfiler builds a profiler that consults chooser.
func NewLLMProfiler(analyzer *Analyzer, chooser Chooser, logger *slog.Logger) *LLMProfiler {
	return &LLMProfiler{analyzer: analyzer, chooser: chooser, logger: logging.NewComponentLogger(logger, "voice")}
}

// Classify describes the reference pitch to the model and validates its answer.
// Answers outside the profile set fall back to the pitch table.
func (p *LLMProfiler) Classify(ctx context.Context, audioURI string) (Profile, error) {
	stats, err := p.analyzer.Analyze(ctx, audioURI)
	if err != nil {
		return "", err
	}
	heuristic := ProfileForPitch(stats.MedianHz)
	description := fmt.Sprintf(
		"Speaker median fundamental frequency %.1f Hz, mean %.1f Hz, voiced %.0f%% of frames. Voice options with gender: %s.",
		stats.MedianHz, stats.MeanHz, stats.VoicedRatio()*100, Describe(),
	)
	options := make([]string, 0, len(All()))
	for _, profile := range All() {
		options = append(options, profile.String())
	}
	answer, err := p.chooser.ChooseVoice(ctx, description, options)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "voice", "classify", "llm request failed", err)
	}
	logger := logging.WithContext(ctx, p.logger)
	profile, err := Parse(answer)
	if err != nil {
		logging.WarnWithContext(logger, "llm returned unknown voice", "voice_llm_invalid",
			logging.String("answer", answer),
			logging.String("profile", heuristic.String()),
			logging.String(logging.FieldImpact, "pitch table profile used"),
		)
		return heuristic, nil
	}
	logger.Info("voice profile selected",
		logging.String("profile", profile.String()),
		logging.String("pitch_profile", heuristic.String()),
		logging.Float64("median_hz", stats.MedianHz),
	)
	return profile, nil
}
