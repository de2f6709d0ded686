package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"dubline/internal/logging"
	"dubline/internal/media/audio"
	"dubline/internal/metrics"
	"dubline/internal/services"
)

// Strategy names a stretch implementation.
type Strategy string

const (
	StrategyRemap  Strategy = "remap"
	StrategyAtempo Strategy = "atempo"
)

// DefaultTolerance is the accepted relative deviation from the reference.
const DefaultTolerance = 0.01

var (
	// ErrInvalidReference is returned for zero, negative or non-finite reference durations.
	ErrInvalidReference = fmt.Errorf("%w: reference duration must be positive and finite", services.ErrValidation)
	// ErrEmptyAudio is returned when there is nothing to stretch.
	ErrEmptyAudio = fmt.Errorf("%w: synthesized audio is empty", services.ErrValidation)
	// ErrUnknownStrategy is returned by ParseStrategy.
	ErrUnknownStrategy = errors.New("unknown alignment strategy")
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(value))); s {
	case "", StrategyRemap:
		return StrategyRemap, nil
	case StrategyAtempo:
		return StrategyAtempo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
	}
}

// TempoChanger applies a pitch-preserving tempo change to a WAV file.
type TempoChanger interface {
	Atempo(ctx context.Context, source, dest string, ratio float64) error
}

// Result describes one alignment.
type Result struct {
	Segment *audio.Segment
	// durations in seconds
	OutputDuration    float64
	ReferenceDuration float64
	SpeedRatio        float64
	// Deviation is |output-reference|/reference.
	Deviation       float64
	WithinTolerance bool
	Strategy        Strategy
}

// Options configures an Aligner.
type Options struct {
	Strategy  Strategy
	Tolerance float64
	// Tempo and WorkDir are required by the atempo strategy.
	Tempo   TempoChanger
	WorkDir string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Aligner stretches segments to reference durations.
type Aligner struct {
	strategy  Strategy
	tolerance float64
	tempo     TempoChanger
	workDir   string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New builds an Aligner.
func New(opts Options) (*Aligner, error) {
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}
	if strategy == StrategyAtempo && opts.Tempo == nil {
		return nil, services.Wrap(services.ErrConfiguration, "align", "atempo", "ffmpeg tool required", nil)
	}
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Aligner{
		strategy:  strategy,
		tolerance: tolerance,
		tempo:     opts.Tempo,
		workDir:   workDir,
		logger:    logging.NewComponentLogger(opts.Logger, "align"),
		metrics:   opts.Metrics,
	}, nil
}

// Strategy reports the configured strategy.
func (a *Aligner) Strategy() Strategy {
	return a.strategy
}

// SpeedRatio returns synthesized/reference. The ratio is neither rounded nor clamped.
func SpeedRatio(synthesized, reference float64) (float64, error) {
	if reference <= 0 || math.IsNaN(reference) || math.IsInf(reference, 0) {
		return 0, fmt.Errorf("%w (got %v)", ErrInvalidReference, reference)
	}
	if synthesized <= 0 || math.IsNaN(synthesized) || math.IsInf(synthesized, 0) {
		return 0, ErrEmptyAudio
	}
	return synthesized / reference, nil
}

// Align stretches seg so it lasts referenceSeconds. seg is not modified.
func (a *Aligner) Align(ctx context.Context, seg *audio.Segment, referenceSeconds float64) (Result, error) {
	if seg == nil || seg.Empty() {
		if _, err := SpeedRatio(1, referenceSeconds); err != nil {
			return Result{}, err
		}
		return Result{}, ErrEmptyAudio
	}
	ratio, err := SpeedRatio(seg.Seconds(), referenceSeconds)
	if err != nil {
		return Result{}, err
	}

	var stretched *audio.Segment
	switch a.strategy {
	case StrategyAtempo:
		stretched, err = a.atempo(ctx, seg, ratio)
	default:
		stretched, err = audio.Stretch(seg, ratio)
	}
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "align", string(a.strategy), "", err)
	}

	out := stretched.Seconds()
	deviation := math.Abs(out-referenceSeconds) / referenceSeconds
	result := Result{
		Segment:           stretched,
		OutputDuration:    out,
		ReferenceDuration: referenceSeconds,
		SpeedRatio:        ratio,
		Deviation:         deviation,
		WithinTolerance:   deviation <= a.tolerance,
		Strategy:          a.strategy,
	}
	a.metrics.ObserveAlignment(string(a.strategy), ratio, result.WithinTolerance)

	logger := logging.WithContext(ctx, a.logger)
	attrs := []logging.Attr{
		logging.String("strategy", string(a.strategy)),
		logging.Float64("speed_ratio", ratio),
		logging.Float64("output_seconds", out),
		logging.Float64("reference_seconds", referenceSeconds),
		logging.Float64("deviation", deviation),
	}
	if !result.WithinTolerance {
		logging.WarnWithContext(logger, "aligned duration outside tolerance", "alignment_tolerance",
			append(attrs,
				logging.Float64("tolerance", a.tolerance),
				logging.String(logging.FieldImpact, "dub may drift from the source video"),
			)...,
		)
	} else {
		logger.Info("audio aligned", logging.Args(attrs...)...)
	}
	return result, nil
}

func (a *Aligner) atempo(ctx context.Context, seg *audio.Segment, ratio float64) (*audio.Segment, error) {
	if err := os.MkdirAll(a.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work dir: %w", err)
	}
	dir, err := os.MkdirTemp(a.workDir, "align-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.wav")
	dest := filepath.Join(dir, "output.wav")
	if err := audio.WriteWAVFile(src, seg); err != nil {
		return nil, err
	}
	if err := a.tempo.Atempo(ctx, src, dest, ratio); err != nil {
		return nil, err
	}
	out, err := audio.ReadWAVFile(dest)
	if err != nil {
		return nil, err
	}
	return audio.Convert(out, seg.Format())
}
