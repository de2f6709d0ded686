package lipsync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dubline/internal/services"
	"dubline/internal/storage"
)

// Localizer resolves object URIs to local files.
type Localizer interface {
	Localize(ctx context.Context, uri string) (string, error)
}

// Wav2LipConfig configures the local runner.
type Wav2LipConfig struct {
	// Dir is the Wav2Lip checkout containing inference.py.
	Dir        string
	Checkpoint string
	Python     string
	WorkDir    string
}

type localJob struct {
	status Status
	output string
	err    error
	cancel context.CancelFunc
}

// Wav2Lip runs inference locally. Submit starts the process in the
// background; Poll reports its state.
type Wav2Lip struct {
	cfg           Wav2LipConfig
	localizer     Localizer
	commandRunner func(ctx context.Context, dir, name string, args ...string) error

	mu   sync.Mutex
	jobs map[string]*localJob
	wg   sync.WaitGroup
}

// NewWav2Lip builds the local runner.
func NewWav2Lip(cfg Wav2LipConfig, localizer Localizer) *Wav2Lip {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Checkpoint == "" {
		cfg.Checkpoint = "checkpoints/wav2lip_gan.pth"
	}
	return &Wav2Lip{cfg: cfg, localizer: localizer, jobs: make(map[string]*localJob)}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *Wav2Lip) WithCommandRunner(runner func(ctx context.Context, dir, name string, args ...string) error) {
	w.commandRunner = runner
}

// Args builds the inference.py argument list.
func (w *Wav2Lip) Args(video, audio, outfile string) []string {
	return []string{
		"inference.py",
		"--checkpoint_path", w.cfg.Checkpoint,
		"--face", video,
		"--audio", audio,
		"--outfile", outfile,
	}
}

// Submit implements Job. The inference process lives until it exits, ctx is
// cancelled, or Cancel is called for the returned job id.
func (w *Wav2Lip) Submit(ctx context.Context, audioURI, videoURI string) (string, error) {
	if w.cfg.Dir == "" {
		return "", services.Wrap(services.ErrConfiguration, "lipsync", "wav2lip", "wav2lip_dir not configured", nil)
	}
	audio, err := w.localizer.Localize(ctx, audioURI)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "lipsync", "localize audio", audioURI, err)
	}
	video, err := w.localizer.Localize(ctx, videoURI)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "lipsync", "localize video", videoURI, err)
	}
	if err := os.MkdirAll(w.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("lipsync: ensure work dir: %w", err)
	}
	id := uuid.NewString()
	outfile, err := filepath.Abs(filepath.Join(w.cfg.WorkDir, "wav2lip-"+id+".mp4"))
	if err != nil {
		return "", fmt.Errorf("lipsync: resolve output: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	job := &localJob{status: StatusPending, cancel: cancel}
	w.mu.Lock()
	w.jobs[id] = job
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		err := w.run(runCtx, w.cfg.Dir, w.cfg.Python, w.Args(video, audio, outfile)...)
		if err == nil {
			if _, statErr := os.Stat(outfile); statErr != nil {
				err = fmt.Errorf("wav2lip produced no output: %w", statErr)
			}
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		switch {
		case err != nil && runCtx.Err() != nil:
			job.status, job.err = StatusCancelled, runCtx.Err()
		case err != nil:
			job.status, job.err = StatusFailed, err
		default:
			job.status, job.output = StatusCompleted, outfile
		}
	}()
	return id, nil
}

// Cancel stops the inference process for jobID if it is still running.
func (w *Wav2Lip) Cancel(jobID string) {
	w.mu.Lock()
	job, ok := w.jobs[jobID]
	w.mu.Unlock()
	if ok && job.cancel != nil {
		job.cancel()
	}
}

// Poll implements Job.
func (w *Wav2Lip) Poll(_ context.Context, jobID string) (Status, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	job, ok := w.jobs[jobID]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "lipsync", "poll", jobID, nil)
	}
	return job.status, nil
}

// FetchResult implements Job.
func (w *Wav2Lip) FetchResult(_ context.Context, jobID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	job, ok := w.jobs[jobID]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "lipsync", "result", jobID, nil)
	}
	if job.status != StatusCompleted {
		return "", &JobError{JobID: jobID, Status: job.status}
	}
	return storage.FileURI(job.output), nil
}

// FailureReason returns the process error recorded for a failed job.
func (w *Wav2Lip) FailureReason(jobID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[jobID]; ok && job.err != nil {
		return job.err.Error()
	}
	return ""
}

// Close waits for running inference processes.
func (w *Wav2Lip) Close() error {
	w.wg.Wait()
	return nil
}

func (w *Wav2Lip) run(ctx context.Context, dir, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, dir, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
