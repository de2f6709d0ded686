package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"dubline/internal/align"
	"dubline/internal/config"
	"dubline/internal/dubbing"
	"dubline/internal/ledger"
	"dubline/internal/lipsync"
	"dubline/internal/logging"
	"dubline/internal/media/audio"
	"dubline/internal/media/ffmpeg"
	"dubline/internal/media/ffprobe"
	"dubline/internal/metrics"
	"dubline/internal/notifications"
	"dubline/internal/services"
	"dubline/internal/services/llm"
	"dubline/internal/storage"
	"dubline/internal/synth"
	"dubline/internal/transcribe"
	"dubline/internal/tts"
	"dubline/internal/voice"
)

// runtime owns the pipeline and every resource it holds open.
type runtime struct {
	pipeline *dubbing.Pipeline
	ledger   *ledger.Store
	metrics  *metrics.Metrics
	closers  []io.Closer
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func retryPolicy(cfg *config.Config) services.RetryPolicy {
	attempts, base, maxDelay := cfg.RetryBackoff()
	return services.RetryPolicy{Attempts: attempts, BaseDelay: base, MaxDelay: maxDelay}
}

func nominalFormat(cfg *config.Config) audio.Format {
	return audio.Format{SampleRate: cfg.Alignment.SampleRate, Channels: cfg.Alignment.Channels, BitDepth: 16}
}

func newAligner(cfg *config.Config, tool *ffmpeg.Tool, logger *slog.Logger, m *metrics.Metrics) (*align.Aligner, error) {
	strategy, err := align.ParseStrategy(cfg.Alignment.Strategy)
	if err != nil {
		return nil, err
	}
	return align.New(align.Options{
		Strategy:  strategy,
		Tolerance: cfg.Alignment.Tolerance,
		Tempo:     tool,
		WorkDir:   filepath.Join(cfg.Paths.WorkDir, "tmp"),
		Logger:    logger,
		Metrics:   m,
	})
}

func newLLMClient(cfg *config.Config, opts ...llm.Option) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		VoiceModel:     cfg.LLM.VoiceModel,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, opts...)
}

// buildRuntime constructs every adapter selected by cfg and the pipeline
// that drives them.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	if err := cfg.ValidateProviders(); err != nil {
		return nil, err
	}
	rt := &runtime{metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	store, resolver, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if c, isCloser := store.(io.Closer); isCloser {
		rt.closers = append(rt.closers, c)
	}

	book, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	rt.ledger = book
	rt.closers = append(rt.closers, book)

	policy := retryPolicy(cfg)
	tool := ffmpeg.New(cfg.FFmpegBinary())
	prober := ffprobe.New(cfg.FFprobeBinary())
	scratch := filepath.Join(cfg.Paths.WorkDir, "tmp")

	var transcriber dubbing.Transcriber
	switch cfg.Transcription.Provider {
	case config.TranscriptionOpenAI:
		transcriber = transcribe.NewOpenAI(transcribe.OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Organization: cfg.OpenAI.Organization,
		}, resolver, policy, logger)
	default:
		transcriber = transcribe.NewWhisperX(transcribe.WhisperXConfig{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
			VADMethod:   cfg.Transcription.WhisperXVADMethod,
			HFToken:     cfg.Transcription.WhisperXHuggingFace,
			WorkDir:     scratch,
		}, resolver, tool, logger)
	}

	chat := newLLMClient(cfg,
		llm.WithRetryPolicy(policy),
		llm.WithRetryHook(func(op string, _ error) { rt.metrics.Retried("llm_" + op) }),
	)

	fallback, err := voice.Parse(cfg.Voice.Default)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "voice", "default", cfg.Voice.Default, err)
	}
	analyzer := voice.NewAnalyzer(resolver, tool, scratch)
	var profiler dubbing.VoiceProfiler
	switch cfg.Voice.Profiler {
	case config.ProfilerLLM:
		profiler = voice.NewLLMProfiler(analyzer, chat, logger)
	default:
		profiler = voice.NewPitchProfiler(analyzer, fallback, logger)
	}

	provider := tts.FromConfig(cfg)
	orchestrator := synth.New(provider, synth.NewDecoder(nominalFormat(cfg), tool), synth.Options{
		Workers:  cfg.Concurrency.ChunkWorkers,
		Retry:    policy,
		Provider: cfg.TTS.Provider,
		Logger:   logger,
		Metrics:  rt.metrics,
	})

	aligner, err := newAligner(cfg, tool, logger, rt.metrics)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "align", "init", "", err)
	}

	var job lipsync.Job
	if cfg.LipSync.Enabled {
		switch cfg.LipSync.Provider {
		case config.LipSyncWav2Lip:
			local := lipsync.NewWav2Lip(lipsync.Wav2LipConfig{
				Dir:        cfg.LipSync.Wav2LipDir,
				Checkpoint: cfg.LipSync.Wav2LipCheckpoint,
				Python:     cfg.LipSync.PythonBinary,
				WorkDir:    filepath.Join(cfg.Paths.WorkDir, "lipsync"),
			}, resolver)
			rt.closers = append(rt.closers, local)
			job = local
		default:
			job = lipsync.NewHTTP(lipsync.HTTPConfig{
				BaseURL: cfg.LipSync.BaseURL,
				APIKey:  cfg.LipSync.APIKey,
				Model:   cfg.LipSync.Model,
				WorkDir: filepath.Join(cfg.Paths.WorkDir, "lipsync"),
				Timeout: 60 * time.Second,
			})
		}
	}

	pipeline, err := dubbing.New(cfg, dubbing.Deps{
		Store:       store,
		Media:       tool,
		Prober:      prober,
		Transcriber: transcriber,
		Translator:  chat,
		Profiler:    profiler,
		Synthesizer: orchestrator,
		Aligner:     aligner,
		LipSync:     job,
		Ledger:      book,
		Notifier:    notifications.NewService(cfg),
		Metrics:     rt.metrics,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	rt.pipeline = pipeline
	ok = true
	logger.Debug(
		"runtime ready",
		logging.String("storage", cfg.Storage.Backend),
		logging.String("transcription", cfg.Transcription.Provider),
		logging.String("tts", cfg.TTS.Provider),
		logging.String("voice_profiler", cfg.Voice.Profiler),
		logging.String("alignment", string(aligner.Strategy())),
		logging.Bool("lipsync", job != nil),
	)
	return rt, nil
}
