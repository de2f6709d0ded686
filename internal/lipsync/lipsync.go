package lipsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dubline/internal/logging"
	"dubline/internal/services"
)

// Status is a lip-sync job state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether polling can stop.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus normalizes provider status strings. Unknown in-progress values
// ("queued", "processing") map to pending.
func ParseStatus(value string) Status {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "completed", "complete", "succeeded", "success", "done":
		return StatusCompleted
	case "failed", "error", "errored":
		return StatusFailed
	case "rejected":
		return StatusRejected
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Job is the contract a lip-sync backend implements.
type Job interface {
	Submit(ctx context.Context, audioURI, videoURI string) (string, error)
	Poll(ctx context.Context, jobID string) (Status, error)
	FetchResult(ctx context.Context, jobID string) (string, error)
}

// JobError reports a job that ended without a result.
type JobError struct {
	JobID  string
	Status Status
	Reason string
}

func (e *JobError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("lipsync job %s ended with status %s: %s", e.JobID, e.Status, e.Reason)
	}
	return fmt.Sprintf("lipsync job %s ended with status %s", e.JobID, e.Status)
}

// failureReasoner is implemented by backends that keep a provider message for
// failed jobs.
type failureReasoner interface {
	FailureReason(jobID string) string
}

// canceler is implemented by backends that can abort a running job.
type canceler interface {
	Cancel(jobID string)
}

// Unwrap lets errors.Is match services.ErrJobFailed.
func (e *JobError) Unwrap() error {
	return services.ErrJobFailed
}

// WaitOptions bounds polling.
type WaitOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Wait polls job until it is terminal and returns the result URI.
func Wait(ctx context.Context, job Job, jobID string, opts WaitOptions) (string, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "lipsync"))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	polls := 0
	for {
		status, err := job.Poll(ctx, jobID)
		polls++
		switch {
		case err != nil && !services.IsTransient(err):
			return "", err
		case err != nil:
			logger.Debug("lipsync poll failed", logging.String("job_id", jobID), logging.Error(err))
		case status == StatusCompleted:
			logger.Info("lipsync job completed", logging.String("job_id", jobID), logging.Int("polls", polls))
			return job.FetchResult(ctx, jobID)
		case status.Terminal():
			jobErr := &JobError{JobID: jobID, Status: status}
			if r, ok := job.(failureReasoner); ok {
				jobErr.Reason = r.FailureReason(jobID)
			}
			return "", jobErr
		}
		select {
		case <-ctx.Done():
			if c, ok := job.(canceler); ok {
				c.Cancel(jobID)
			}
			if ctx.Err() == context.DeadlineExceeded {
				return "", services.Wrap(services.ErrTimeout, "lipsync", "wait", "job "+jobID, ctx.Err())
			}
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
