package dubbing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dubline/internal/config"
	"dubline/internal/language"
	"dubline/internal/ledger"
	"dubline/internal/lipsync"
	"dubline/internal/logging"
	"dubline/internal/metrics"
	"dubline/internal/notifications"
	"dubline/internal/services"
	"dubline/internal/storage"
	"dubline/internal/textchunk"
	"dubline/internal/voice"
)

// Deps holds the collaborators a Pipeline drives. LipSync, Ledger, Notifier,
// Metrics and Logger are optional.
type Deps struct {
	Store       ObjectStore
	Media       MediaTool
	Prober      Prober
	Transcriber Transcriber
	Translator  Translator
	Profiler    VoiceProfiler
	Synthesizer Synthesizer
	Aligner     Aligner
	LipSync     lipsync.Job
	Ledger      Ledger
	Notifier    Notifier
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Pipeline runs dubbing requests.
type Pipeline struct {
	cfg     *config.Config
	deps    Deps
	policy  textchunk.OversizePolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
	ledger  Ledger
}

// New validates deps against cfg and returns a Pipeline.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "dubbing", "init", "config required", nil)
	}
	missing := make([]string, 0)
	for name, ok := range map[string]bool{
		"store":       deps.Store != nil,
		"media":       deps.Media != nil,
		"prober":      deps.Prober != nil,
		"transcriber": deps.Transcriber != nil,
		"translator":  deps.Translator != nil,
		"profiler":    deps.Profiler != nil,
		"synthesizer": deps.Synthesizer != nil,
		"aligner":     deps.Aligner != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, services.Wrap(services.ErrConfiguration, "dubbing", "init", "missing "+strings.Join(missing, ", "), nil)
	}
	if cfg.LipSync.Enabled && deps.LipSync == nil {
		return nil, services.Wrap(services.ErrConfiguration, "dubbing", "init", "lipsync enabled without a backend", nil)
	}
	policy, err := textchunk.ParsePolicy(cfg.Text.OversizePolicy)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "dubbing", "init", "text.oversize_policy", err)
	}
	p := &Pipeline{
		cfg:     cfg,
		deps:    deps,
		policy:  policy,
		logger:  logging.NewComponentLogger(deps.Logger, "dubbing"),
		metrics: deps.Metrics,
		ledger:  deps.Ledger,
	}
	if p.ledger == nil {
		p.ledger = nopLedger{}
	}
	return p, nil
}

// reference is the shared per-run input every language task reads.
type reference struct {
	runID      string
	bucket     string
	dir        string
	audioURI   string
	videoURI   string
	duration   float64
	transcript string
	profile    voice.Profile
}

// Run executes a whole dubbing run. The returned report is non-nil whenever
// the run was registered; err reports failures before the language fan-out,
// a held run lock, or cancellation.
func (p *Pipeline) Run(ctx context.Context, req Request) (*RunReport, error) {
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	videoKey := strings.TrimSpace(req.VideoKey)
	if videoKey == "" {
		return nil, services.Wrap(services.ErrValidation, "dubbing", "run", "video key required", nil)
	}
	bucket := p.bucket(req.Bucket)
	targets, err := language.Resolve(p.cfg.Languages, req.Languages)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "dubbing", "run", "resolve languages", err)
	}

	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	unlock, err := p.lockRun(runID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := time.Now()
	report := &RunReport{RunID: runID, SourceURI: p.deps.Store.URI(bucket, videoKey)}
	if _, err := p.ledger.CreateRun(ctx, runID, report.SourceURI); err != nil {
		return nil, fmt.Errorf("register run: %w", err)
	}
	logger.Info(
		"run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", report.SourceURI),
		logging.Int("languages", len(targets)),
	)

	ref, err := p.prepare(ctx, runID, bucket, videoKey)
	if err != nil {
		report.Status = ledger.StatusFailed
		p.finish(ctx, report, err, time.Since(started))
		return report, err
	}
	report.ReferenceURI = ref.audioURI
	report.ReferenceDuration = ref.duration
	report.Transcript = ref.transcript
	report.VoiceProfile = ref.profile
	if err := p.ledger.SetRunDetails(ctx, runID, ref.profile.String(), ref.duration); err != nil {
		logger.Warn("failed to persist run details", logging.Error(err))
	}

	report.Languages = p.fanOut(ctx, ref, targets)
	report.Status = ledger.Summarize(report.records())
	p.finish(ctx, report, nil, time.Since(started))
	logger.Info(
		"run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", string(report.Status)),
		logging.Int("failed_languages", len(report.Failed())),
		logging.Duration("run_duration", time.Since(started)),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// RunLanguage dubs one language of an existing run. The reference track is
// fetched from {run_id}/{run_id}.flac rather than re-extracted.
func (p *Pipeline) RunLanguage(ctx context.Context, req LanguageRequest) (LanguageResult, error) {
	runID := strings.TrimSpace(req.RunID)
	if err := ValidateRunID(runID); err != nil {
		return LanguageResult{}, err
	}
	targets, err := language.Resolve(p.cfg.Languages, []string{req.Language})
	if err != nil {
		return LanguageResult{}, services.Wrap(services.ErrValidation, "dubbing", "language", "resolve language", err)
	}
	target := targets[0]
	bucket := p.bucket(req.Bucket)
	ctx = services.WithRunID(ctx, runID)

	unlock, err := p.lockRun(runID)
	if err != nil {
		return LanguageResult{}, err
	}
	defer unlock()

	ref := &reference{runID: runID, bucket: bucket, dir: p.cfg.RunDir(runID), transcript: strings.TrimSpace(req.Transcript)}
	if key := strings.TrimSpace(req.VideoKey); key != "" {
		ref.videoURI = p.deps.Store.URI(bucket, key)
	}
	refKey := referenceKey(runID)
	var localRef string
	if err := p.stage(ctx, StageFetch, func(ctx context.Context) error {
		var err error
		localRef, err = p.deps.Store.Fetch(ctx, bucket, refKey)
		return err
	}); err != nil {
		return LanguageResult{}, err
	}
	ref.audioURI = p.deps.Store.URI(bucket, refKey)
	if err := p.analyze(ctx, ref, localRef); err != nil {
		return LanguageResult{}, err
	}

	result := p.dubLanguage(ctx, ref, target)
	p.recordLanguage(ctx, runID, result)
	return result, result.Err
}

// prepare fetches the video and derives the shared reference inputs.
func (p *Pipeline) prepare(ctx context.Context, runID, bucket, videoKey string) (*reference, error) {
	ref := &reference{runID: runID, bucket: bucket, dir: p.cfg.RunDir(runID)}

	var videoPath string
	if err := p.stage(ctx, StageFetch, func(ctx context.Context) error {
		var err error
		videoPath, err = p.deps.Store.Fetch(ctx, bucket, videoKey)
		return err
	}); err != nil {
		return nil, err
	}
	ref.videoURI = p.deps.Store.URI(bucket, videoKey)

	localRef := filepath.Join(ref.dir, runID+".flac")
	if err := p.stage(ctx, StageExtract, func(ctx context.Context) error {
		return p.deps.Media.ExtractReference(ctx, videoPath, localRef)
	}); err != nil {
		return nil, err
	}
	if err := p.stage(ctx, StageUpload, func(ctx context.Context) error {
		var err error
		ref.audioURI, err = p.deps.Store.Upload(ctx, bucket, referenceKey(runID), localRef)
		return err
	}); err != nil {
		return nil, err
	}
	if err := p.analyze(ctx, ref, localRef); err != nil {
		return nil, err
	}
	return ref, nil
}

// analyze probes, transcribes and classifies the local reference track.
func (p *Pipeline) analyze(ctx context.Context, ref *reference, localRef string) error {
	if err := p.stage(ctx, StageProbe, func(ctx context.Context) error {
		var err error
		ref.duration, err = p.deps.Prober.Duration(ctx, localRef)
		return err
	}); err != nil {
		return err
	}
	if ref.transcript == "" {
		if err := p.stage(ctx, StageTranscribe, func(ctx context.Context) error {
			text, err := p.deps.Transcriber.Transcribe(ctx, ref.audioURI, p.cfg.Transcription.Language)
			if err != nil {
				return err
			}
			ref.transcript = strings.TrimSpace(text)
			if ref.transcript == "" {
				return services.Wrap(services.ErrValidation, StageTranscribe, "transcribe", "reference audio produced an empty transcript", nil)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	return p.stage(ctx, StageVoice, func(ctx context.Context) error {
		var err error
		ref.profile, err = p.deps.Profiler.Classify(ctx, ref.audioURI)
		return err
	})
}

// stage runs fn with the stage stamped on ctx, timing it for metrics.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx = services.WithStage(ctx, name)
	logger := logging.WithContext(ctx, p.logger)
	start := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	err := fn(ctx)
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed)
	if err != nil {
		return &StageError{Stage: name, Err: err}
	}
	logger.Debug(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

func (p *Pipeline) finish(ctx context.Context, report *RunReport, runErr error, elapsed time.Duration) {
	message := ""
	var names []string
	if runErr != nil {
		message = runErr.Error()
		logging.ErrorWithContext(
			logging.WithContext(ctx, p.logger),
			"run failed before language fan-out",
			"run_failure",
			logging.String(logging.FieldStage, stageOf(runErr)),
			logging.Error(runErr),
		)
	} else if failed := report.Failed(); len(failed) > 0 {
		for _, lang := range failed {
			names = append(names, lang.Name)
		}
		message = "failed languages: " + strings.Join(names, ", ")
	}
	// Record the outcome even when the run context was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	if err := p.ledger.FinishRun(persistCtx, report.RunID, report.Status, message); err != nil {
		logging.WithContext(ctx, p.logger).Warn("failed to persist run outcome", logging.Error(err))
	}
	p.metrics.RunFinished(string(report.Status))

	if p.deps.Notifier == nil {
		return
	}
	if runErr != nil {
		label := fmt.Sprintf("run %s (%s)", report.RunID, stageOf(runErr))
		if err := p.deps.Notifier.NotifyError(persistCtx, runErr, label); err != nil {
			logging.WithContext(ctx, p.logger).Warn("run notification failed", logging.Error(err))
		}
		return
	}
	summary := notifications.RunSummary{
		RunID:    report.RunID,
		Status:   string(report.Status),
		Failed:   names,
		Duration: elapsed,
	}
	for _, lang := range report.Languages {
		if lang.Succeeded() {
			summary.Succeeded++
		}
	}
	if err := p.deps.Notifier.NotifyRunFinished(persistCtx, summary); err != nil {
		logging.WithContext(ctx, p.logger).Warn("run notification failed", logging.Error(err))
	}
}

// lockRun takes an exclusive flock on the run directory.
func (p *Pipeline) lockRun(runID string) (func(), error) {
	dir := p.cfg.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, runID)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (p *Pipeline) bucket(requested string) string {
	if b := strings.TrimSpace(requested); b != "" {
		return b
	}
	return p.cfg.Storage.Bucket
}

// StageError names the stage an error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageOf(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

func referenceKey(runID string) string {
	return storage.ObjectKey(runID, runID+".flac")
}

func outputKey(runID, code, ext string) string {
	return storage.ObjectKey(runID, code+"_output."+ext)
}

// ValidateRunID rejects ids that are empty or would escape the run directory.
func ValidateRunID(id string) error {
	if id == "" {
		return services.Wrap(services.ErrValidation, "dubbing", "run", "run id required", nil)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return services.Wrap(services.ErrValidation, "dubbing", "run", fmt.Sprintf("invalid run id %q", id), nil)
	}
	return nil
}

type nopLedger struct{}

func (nopLedger) CreateRun(_ context.Context, id, sourceURI string) (*ledger.Run, error) {
	return &ledger.Run{ID: id, SourceURI: sourceURI, Status: ledger.StatusRunning}, nil
}

func (nopLedger) SetRunDetails(context.Context, string, string, float64) error { return nil }

func (nopLedger) RecordLanguage(context.Context, ledger.LanguageRecord) error { return nil }

func (nopLedger) FinishRun(context.Context, string, ledger.Status, string) error { return nil }
