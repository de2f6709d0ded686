package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"dubline/internal/ledger"
	"dubline/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "synthesize", "tts", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"synthesize", "tts", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !services.IsTransient(err) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestTransientIsIdempotent(t *testing.T) {
	if services.Transient(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
	once := services.Transient(errors.New("503"))
	twice := services.Transient(once)
	if once != twice {
		t.Fatalf("expected already-transient error to be returned as is")
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "align", "ratio", "invalid", nil)
	if status := services.FailureStatus(validationErr); status != ledger.StatusInvalid {
		t.Fatalf("expected invalid for validation error, got %s", status)
	}

	transientErr := services.Wrap(services.ErrTransient, "upload", "put", "upload failed", errors.New("io"))
	if status := services.FailureStatus(transientErr); status != ledger.StatusFailed {
		t.Fatalf("expected failed for transient error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != ledger.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		marker    error
		transient bool
	}{
		{408, services.ErrExternalTool, true},
		{429, services.ErrExternalTool, true},
		{503, services.ErrExternalTool, true},
		{401, services.ErrConfiguration, false},
		{404, services.ErrNotFound, false},
		{422, services.ErrValidation, false},
	}
	for _, tt := range tests {
		err := services.StatusError("tts", "synthesize", tt.status, "body")
		if !errors.Is(err, tt.marker) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.marker, err)
		}
		if services.IsTransient(err) != tt.transient {
			t.Errorf("status %d: transient=%v", tt.status, services.IsTransient(err))
		}
	}
}

func TestOpenAIErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		marker    error
		transient bool
	}{
		{401, services.ErrConfiguration, false},
		{400, services.ErrValidation, false},
		{429, services.ErrExternalTool, true},
		{502, services.ErrExternalTool, true},
	}
	for _, tt := range tests {
		err := services.OpenAIError("tts", &openai.APIError{HTTPStatusCode: tt.status, Message: "x"})
		if !errors.Is(err, tt.marker) || services.IsTransient(err) != tt.transient {
			t.Errorf("status %d: got %v", tt.status, err)
		}
	}
	if err := services.OpenAIError("tts", errors.New("connection reset")); !services.IsTransient(err) {
		t.Fatalf("network errors must be transient: %v", err)
	}
	if err := services.OpenAIError("tts", context.Canceled); !errors.Is(err, context.Canceled) || services.IsTransient(err) {
		t.Fatalf("cancellation must pass through: %v", err)
	}
}
