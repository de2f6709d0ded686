package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dubline/internal/logging"
	"dubline/internal/media/audio"
	"dubline/internal/metrics"
	"dubline/internal/services"
	"dubline/internal/textchunk"
	"dubline/internal/voice"
)

// TextToSpeech renders one chunk of text to encoded audio.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text, languageCode string, profile voice.Profile) ([]byte, error)
	Encoding() string
}

// Voice selects the language and speaker used for every chunk.
type Voice struct {
	LanguageCode string
	Profile      voice.Profile
}

// ChunkError reports the chunk that aborted a synthesis.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("synthesize chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Options configures an Orchestrator.
type Options struct {
	// Workers bounds concurrent TTS requests; values below 1 mean 1.
	Workers int
	Retry   services.RetryPolicy
	// Provider labels metrics.
	Provider string
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Orchestrator synthesizes chunk sequences.
type Orchestrator struct {
	tts      TextToSpeech
	decoder  *Decoder
	workers  int
	retry    services.RetryPolicy
	provider string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New builds an Orchestrator.
func New(tts TextToSpeech, decoder *Decoder, opts Options) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	provider := opts.Provider
	if provider == "" {
		provider = "tts"
	}
	return &Orchestrator{
		tts:      tts,
		decoder:  decoder,
		workers:  workers,
		retry:    opts.Retry,
		provider: provider,
		logger:   logging.NewComponentLogger(opts.Logger, "synth"),
		metrics:  opts.Metrics,
	}
}

// Synthesize renders chunks in order and returns their concatenation. An empty
// chunk list yields an empty segment without calling the TTS backend.
func (o *Orchestrator) Synthesize(ctx context.Context, chunks []textchunk.Chunk, v Voice) (*audio.Segment, error) {
	format := o.decoder.Format()
	if len(chunks) == 0 {
		return audio.NewSegment(format), nil
	}
	if !v.Profile.Valid() {
		return nil, services.Wrap(services.ErrValidation, "synthesize", "voice", fmt.Sprintf("unknown voice profile %q", v.Profile), nil)
	}

	results := make([]*audio.Segment, len(chunks))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(o.workers)
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			seg, err := o.synthesizeChunk(gctx, chunk, v)
			if err != nil {
				return &ChunkError{Index: chunk.Index, Err: err}
			}
			results[i] = seg
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		var chunkErr *ChunkError
		if errors.As(err, &chunkErr) {
			logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "chunk synthesis failed", "tts_failed",
				logging.Int(logging.FieldChunk, chunkErr.Index),
				logging.Error(chunkErr.Err),
				logging.String(logging.FieldImpact, "language aborted"),
			)
		}
		return nil, err
	}

	// Cancellation can stop scheduling without any task failing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rendered := make([]*audio.Segment, 0, len(results))
	for _, seg := range results {
		if seg != nil {
			rendered = append(rendered, seg)
		}
	}
	out, err := audio.Concat(format, rendered...)
	if err != nil {
		return nil, fmt.Errorf("join chunks: %w", err)
	}
	logging.WithContext(ctx, o.logger).Debug("synthesis complete",
		logging.Int("chunks", len(chunks)),
		logging.Float64("seconds", out.Seconds()),
	)
	return out, nil
}

func (o *Orchestrator) synthesizeChunk(ctx context.Context, chunk textchunk.Chunk, v Voice) (*audio.Segment, error) {
	var payload []byte
	attempt := 0
	err := services.Retry(ctx, o.retry, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			o.metrics.Retried("tts")
		}
		started := time.Now()
		data, err := o.tts.Synthesize(ctx, chunk.Text, v.LanguageCode, v.Profile)
		o.metrics.ObserveTTS(o.provider, time.Since(started), err)
		if err != nil {
			if services.IsTransient(err) {
				logging.WithContext(ctx, o.logger).Debug("tts attempt failed",
					logging.Int(logging.FieldChunk, chunk.Index),
					logging.Int("attempt", attempt),
					logging.Error(err),
				)
			}
			return err
		}
		if len(data) == 0 {
			return services.Wrap(services.ErrExternalTool, "synthesize", "tts", "empty audio payload", nil)
		}
		payload = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	seg, err := o.decoder.Decode(ctx, payload, o.tts.Encoding())
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "synthesize", "decode", o.tts.Encoding(), err)
	}
	return seg, nil
}
