package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dubline/internal/logging"
	"dubline/internal/media/audio"
	"dubline/internal/services"
)

// analysisFormat is the PCM layout reference audio is decoded to for pitch analysis.
var analysisFormat = audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 16}

// Localizer resolves an object URI to a readable local file.
type Localizer interface {
	Localize(ctx context.Context, uri string) (string, error)
}

// WAVDecoder transcodes an audio file into PCM WAV.
type WAVDecoder interface {
	DecodeToWAV(ctx context.Context, source, dest string, format audio.Format) error
}

// Analyzer loads reference audio and estimates its pitch.
type Analyzer struct {
	localizer Localizer
	decoder   WAVDecoder
	workDir   string
}

// NewAnalyzer builds an Analyzer that writes scratch files under workDir.
func NewAnalyzer(localizer Localizer, decoder WAVDecoder, workDir string) *Analyzer {
	return &Analyzer{localizer: localizer, decoder: decoder, workDir: workDir}
}

// Analyze returns pitch statistics for the audio behind uri.
func (a *Analyzer) Analyze(ctx context.Context, uri string) (PitchStats, error) {
	path, err := a.localizer.Localize(ctx, uri)
	if err != nil {
		return PitchStats{}, services.Wrap(services.ErrNotFound, "voice", "localize reference", uri, err)
	}
	if err := os.MkdirAll(a.workDir, 0o755); err != nil {
		return PitchStats{}, fmt.Errorf("voice: ensure work dir: %w", err)
	}
	tmp, err := os.MkdirTemp(a.workDir, "pitch-")
	if err != nil {
		return PitchStats{}, fmt.Errorf("voice: temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	wavPath := filepath.Join(tmp, "analysis.wav")
	if err := a.decoder.DecodeToWAV(ctx, path, wavPath, analysisFormat); err != nil {
		return PitchStats{}, services.Wrap(services.ErrExternalTool, "voice", "decode reference", "", err)
	}
	seg, err := audio.ReadWAVFile(wavPath)
	if err != nil {
		return PitchStats{}, services.Wrap(services.ErrExternalTool, "voice", "read reference", "", err)
	}
	return EstimatePitch(seg.Mono(), seg.Format().SampleRate), nil
}

// PitchProfiler picks a profile from the reference speaker's median pitch.
type PitchProfiler struct {
	analyzer *Analyzer
	fallback Profile
	logger   *slog.Logger
}

// NewPitchProfiler returns a profiler that falls back to fallback when the
// reference carries too little voiced audio.
func NewPitchProfiler(analyzer *Analyzer, fallback Profile, logger *slog.Logger) *PitchProfiler {
	if !fallback.Valid() {
		fallback = Puck
	}
	return &PitchProfiler{analyzer: analyzer, fallback: fallback, logger: logging.NewComponentLogger(logger, "voice")}
}

// Classify implements the pipeline's VoiceProfiler contract.
func (p *PitchProfiler) Classify(ctx context.Context, audioURI string) (Profile, error) {
	stats, err := p.analyzer.Analyze(ctx, audioURI)
	if err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, p.logger)
	if stats.VoicedFrames == 0 {
		logging.WarnWithContext(logger, "no voiced audio in reference", "voice_fallback",
			logging.String("profile", p.fallback.String()),
			logging.String(logging.FieldImpact, "default voice profile used"),
		)
		return p.fallback, nil
	}
	profile := ProfileForPitch(stats.MedianHz)
	logger.Info("voice profile selected",
		logging.String("profile", profile.String()),
		logging.Float64("median_hz", stats.MedianHz),
		logging.Float64("voiced_ratio", stats.VoicedRatio()),
	)
	return profile, nil
}

// Static always returns the same profile.
type Static Profile

// Classify returns the fixed profile.
func (s Static) Classify(context.Context, string) (Profile, error) {
	return Profile(s), nil
}
