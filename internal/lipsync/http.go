package lipsync

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"dubline/internal/services"
	"dubline/internal/storage"
)

// HTTPConfig configures the hosted job API backend.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// WorkDir receives downloaded results.
	WorkDir string
	Timeout time.Duration
}

// HTTP submits jobs to a hosted lip-sync API.
type HTTP struct {
	cfg    HTTPConfig
	client *resty.Client

	reasons sync.Map
}

// NewHTTP builds the hosted API backend.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTP{cfg: cfg, client: client}
}

type submitRequest struct {
	AudioURL string `json:"audio_url"`
	VideoURL string `json:"video_url"`
	Model    string `json:"model,omitempty"`
}

type jobResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	OutputURL string `json:"output_url"`
	Error     string `json:"error"`
}

// Submit implements Job.
func (h *HTTP) Submit(ctx context.Context, audioURI, videoURI string) (string, error) {
	var out jobResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(submitRequest{AudioURL: audioURI, VideoURL: videoURI, Model: h.cfg.Model}).
		SetResult(&out).
		Post("/jobs")
	if err := h.check(ctx, "submit", resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", services.Wrap(services.ErrExternalTool, "lipsync", "submit", "response missing job id", nil)
	}
	return out.ID, nil
}

// Poll implements Job.
func (h *HTTP) Poll(ctx context.Context, jobID string) (Status, error) {
	job, err := h.get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Error != "" {
		h.reasons.Store(jobID, job.Error)
	}
	return ParseStatus(job.Status), nil
}

// FailureReason returns the provider's error message for jobID, if any.
func (h *HTTP) FailureReason(jobID string) string {
	if v, ok := h.reasons.Load(jobID); ok {
		return v.(string)
	}
	return ""
}

// FetchResult downloads the rendered video and returns its file URI.
func (h *HTTP) FetchResult(ctx context.Context, jobID string) (string, error) {
	job, err := h.get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if status := ParseStatus(job.Status); status != StatusCompleted {
		return "", &JobError{JobID: jobID, Status: status, Reason: job.Error}
	}
	if job.OutputURL == "" {
		return "", services.Wrap(services.ErrExternalTool, "lipsync", "result", "completed job has no output_url", nil)
	}
	u, err := url.Parse(job.OutputURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		// Provider wrote straight to object storage.
		return job.OutputURL, nil
	}
	if err := os.MkdirAll(h.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("lipsync: ensure work dir: %w", err)
	}
	dest, err := filepath.Abs(filepath.Join(h.cfg.WorkDir, "lipsync-"+jobID+".mp4"))
	if err != nil {
		return "", fmt.Errorf("lipsync: resolve output: %w", err)
	}
	resp, err := h.client.R().SetContext(ctx).SetOutput(dest).Get(job.OutputURL)
	if err := h.check(ctx, "download", resp, err); err != nil {
		return "", err
	}
	return storage.FileURI(dest), nil
}

func (h *HTTP) get(ctx context.Context, jobID string) (jobResponse, error) {
	var out jobResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetPathParam("id", jobID).
		SetResult(&out).
		Get("/jobs/{id}")
	if err := h.check(ctx, "poll", resp, err); err != nil {
		return jobResponse{}, err
	}
	return out, nil
}

func (h *HTTP) check(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Transient(services.Wrap(services.ErrExternalTool, "lipsync", op, "request failed", err))
	}
	if resp.IsError() {
		return services.StatusError("lipsync", op, resp.StatusCode(), resp.String())
	}
	return nil
}
