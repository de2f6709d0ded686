package dubbing

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"dubline/internal/language"
	"dubline/internal/ledger"
	"dubline/internal/lipsync"
	"dubline/internal/logging"
	"dubline/internal/media/audio"
	"dubline/internal/services"
	"dubline/internal/storage"
	"dubline/internal/synth"
	"dubline/internal/textchunk"
)

// fanOut dubs every target on a bounded pool. Tasks never return errors to
// the group, so one failed language leaves its siblings running. Results keep
// the order of targets.
func (p *Pipeline) fanOut(ctx context.Context, ref *reference, targets []language.Target) []LanguageResult {
	results := make([]LanguageResult, len(targets))
	var g errgroup.Group
	g.SetLimit(max(1, p.cfg.Concurrency.LanguageWorkers))
	for i, target := range targets {
		g.Go(func() error {
			results[i] = p.dubLanguage(ctx, ref, target)
			p.recordLanguage(ctx, ref.runID, results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// dubLanguage runs every per-language stage and reports the outcome.
func (p *Pipeline) dubLanguage(ctx context.Context, ref *reference, target language.Target) LanguageResult {
	ctx = services.WithLanguage(ctx, target.Name)
	logger := logging.WithContext(ctx, p.logger)
	result := LanguageResult{Name: target.Name, Code: target.Code, Status: ledger.StatusRunning}
	started := time.Now()

	fail := func(err error) LanguageResult {
		result.Stage = stageOf(err)
		result.Err = err
		result.Status = services.FailureStatus(err)
		logging.WarnWithContext(
			logger,
			"language failed",
			"language_failure",
			logging.String(logging.FieldStage, result.Stage),
			logging.String("code", target.Code),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no dubbed output for this language"),
		)
		return result
	}

	var translated string
	if err := p.stage(ctx, StageTranslate, func(ctx context.Context) error {
		var err error
		translated, err = p.deps.Translator.Translate(ctx, ref.transcript, translationTarget(target))
		if err == nil && strings.TrimSpace(translated) == "" {
			err = services.Wrap(services.ErrValidation, StageTranslate, "translate", "empty translation", nil)
		}
		return err
	}); err != nil {
		return fail(err)
	}

	var chunks []textchunk.Chunk
	if err := p.stage(ctx, StageChunk, func(context.Context) error {
		var err error
		chunks, err = textchunk.Split(translated, p.cfg.Text.MaxChars, p.policy)
		if err != nil {
			return services.Wrap(services.ErrValidation, StageChunk, "split", "", err)
		}
		return nil
	}); err != nil {
		return fail(err)
	}
	result.Chunks = len(chunks)

	var seg *audio.Segment
	if err := p.stage(ctx, StageSynthesize, func(ctx context.Context) error {
		var err error
		seg, err = p.deps.Synthesizer.Synthesize(ctx, chunks, synth.Voice{LanguageCode: target.Code, Profile: ref.profile})
		return err
	}); err != nil {
		return fail(err)
	}

	var aligned *audio.Segment
	if err := p.stage(ctx, StageAlign, func(ctx context.Context) error {
		res, err := p.deps.Aligner.Align(ctx, seg, ref.duration)
		if err != nil {
			return err
		}
		aligned = res.Segment
		result.Alignment = &res
		return nil
	}); err != nil {
		return fail(err)
	}

	wavPath := filepath.Join(ref.dir, target.Code+"_output.wav")
	mp3Path := filepath.Join(ref.dir, target.Code+"_output.mp3")
	if err := p.stage(ctx, StageEncode, func(ctx context.Context) error {
		if err := audio.WriteWAVFile(wavPath, aligned); err != nil {
			return services.Wrap(services.ErrExternalTool, StageEncode, "write wav", wavPath, err)
		}
		return p.deps.Media.EncodeMP3(ctx, wavPath, mp3Path, p.cfg.Output.MP3Bitrate)
	}); err != nil {
		return fail(err)
	}

	if err := p.stage(ctx, StageUpload, func(ctx context.Context) error {
		var err error
		result.AudioURI, err = p.deps.Store.Upload(ctx, ref.bucket, outputKey(ref.runID, target.Code, "mp3"), mp3Path)
		return err
	}); err != nil {
		return fail(err)
	}
	result.Stage = StageUpload

	if p.cfg.LipSync.Enabled && ref.videoURI != "" {
		if err := p.stage(ctx, StageLipSync, func(ctx context.Context) error {
			var err error
			result.VideoURI, err = p.lipSync(ctx, ref, target, result.AudioURI)
			return err
		}); err != nil {
			return fail(err)
		}
		result.Stage = StageLipSync
	}

	result.Status = ledger.StatusSucceeded
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "language_complete"),
		logging.String("code", target.Code),
		logging.String("audio_uri", result.AudioURI),
		logging.Int("chunks", result.Chunks),
		logging.Float64("speed_ratio", result.Alignment.SpeedRatio),
		logging.Duration("language_duration", time.Since(started)),
	}
	if result.VideoURI != "" {
		attrs = append(attrs, logging.String("video_uri", result.VideoURI))
	}
	logger.Info("language completed", logging.Args(attrs...)...)
	return result
}

// lipSync submits the dubbed audio and video, waits for the job, and stores
// a locally produced result next to the audio output.
func (p *Pipeline) lipSync(ctx context.Context, ref *reference, target language.Target, audioURI string) (string, error) {
	jobID, err := p.deps.LipSync.Submit(ctx, audioURI, ref.videoURI)
	if err != nil {
		return "", err
	}
	resultURI, err := lipsync.Wait(ctx, p.deps.LipSync, jobID, lipsync.WaitOptions{
		Interval: time.Duration(p.cfg.LipSync.PollIntervalSeconds) * time.Second,
		Timeout:  time.Duration(p.cfg.LipSync.TimeoutSeconds) * time.Second,
		Logger:   p.logger,
	})
	if err != nil {
		return "", err
	}
	loc, err := storage.ParseURI(resultURI)
	if err != nil {
		return "", err
	}
	if loc.Scheme != storage.SchemeFile {
		return resultURI, nil
	}
	return p.deps.Store.Upload(ctx, ref.bucket, outputKey(ref.runID, target.Code, "mp4"), loc.Path)
}

// recordLanguage persists a language outcome. Persistence outlives run
// cancellation so a cancelled language is still recorded as failed.
func (p *Pipeline) recordLanguage(ctx context.Context, runID string, result LanguageResult) {
	p.metrics.LanguageFinished(string(result.Status))
	if err := p.ledger.RecordLanguage(context.WithoutCancel(ctx), result.Record(runID)); err != nil {
		logging.WithContext(ctx, p.logger).Warn(
			"failed to persist language outcome",
			logging.String(logging.FieldLanguage, result.Name),
			logging.Error(err),
		)
	}
}

// translationTarget describes the target to the translator, preferring the
// English language name over the table key.
func translationTarget(target language.Target) string {
	name := target.DisplayName()
	if name == "" {
		name = target.Name
	}
	return fmt.Sprintf("%s (%s)", name, target.Code)
}
