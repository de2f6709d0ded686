package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dubline/internal/config"
)

const userAgent = "dubline/0.1.0"

// RunSummary describes a finished run for notification purposes.
type RunSummary struct {
	RunID     string
	Status    string
	Succeeded int
	Failed    []string
	Duration  time.Duration
}

// Service publishes run events.
type Service interface {
	NotifyRunFinished(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunFinished(ctx context.Context, summary RunSummary) error {
	total := summary.Succeeded + len(summary.Failed)
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s %s: %d/%d languages dubbed", summary.RunID, summary.Status, summary.Succeeded, total)
	if summary.Duration > 0 {
		fmt.Fprintf(&b, " in %s", summary.Duration.Round(time.Second))
	}
	if len(summary.Failed) > 0 {
		fmt.Fprintf(&b, "\nFailed: %s", strings.Join(summary.Failed, ", "))
	}

	data := payload{
		title:   "dubline - Run " + titleCase(summary.Status),
		message: b.String(),
		tags:    []string{"dubline", "run", summary.Status},
	}
	switch summary.Status {
	case "failed":
		data.priority = "high"
	case "partial":
		data.priority = "default"
	default:
		data.priority = "low"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "dubline - Error",
		message:  builder.String(),
		tags:     []string{"dubline", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "dubline - Test",
		message:  "Notification system test",
		tags:     []string{"dubline", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type noopService struct{}

func (noopService) NotifyRunFinished(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error   { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
