package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dubline/internal/ledger"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrJobFailed     = errors.New("job failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Transient tags err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err carries the transient marker.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// FailureStatus maps a stage error to the ledger status recorded for the
// language that failed. Input problems are marked invalid since a retry with
// the same request cannot succeed.
func FailureStatus(err error) ledger.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return ledger.StatusInvalid
	default:
		return ledger.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// StatusError classifies a failed HTTP response. 408, 429 and 5xx are
// transient; 401 and 403 are configuration problems; other 4xx are rejected
// input.
func StatusError(stage, operation string, status int, body string) error {
	message := fmt.Sprintf("http %d", status)
	if body = strings.TrimSpace(body); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		message += ": " + body
	}
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return Transient(Wrap(ErrExternalTool, stage, operation, message, nil))
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Wrap(ErrConfiguration, stage, operation, message, nil)
	case status == http.StatusNotFound:
		return Wrap(ErrNotFound, stage, operation, message, nil)
	default:
		return Wrap(ErrValidation, stage, operation, message, nil)
	}
}
