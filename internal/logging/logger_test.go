package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dubline/internal/config"
	"dubline/internal/logging"
	"dubline/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (string, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	off := false
	logger, err := logging.New(logging.Options{Format: format, Level: level, OutputPaths: []string{path}, Color: &off})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithLanguage(services.WithRunID(context.Background(), "run-42"), "Francais")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "aligner")).Info("aligned segment", logging.Float64("speed_ratio", 1.25))
	return path, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		return string(data)
	}
}

func TestConsoleLoggerFormatsComponentAndContext(t *testing.T) {
	_, read := newFileLogger(t, "console", "info")
	line := read()
	for _, want := range []string{"INFO", "aligner: aligned segment", "run_id=run-42", "language=Francais", "speed_ratio=1.25"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no color codes, got %q", line)
	}
}

func TestJSONLoggerEmitsStructuredFields(t *testing.T) {
	_, read := newFileLogger(t, "json", "info")
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level %v", payload["level"])
	}
	if payload["component"] != "aligner" || payload["run_id"] != "run-42" {
		t.Fatalf("missing fields: %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key: %v", payload)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logging.WarnWithContext(logger, "shown", "alignment_tolerance")
	data, _ := os.ReadFile(path)
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Fatalf("info line should be filtered: %q", content)
	}
	if !strings.Contains(content, "event_type=alignment_tolerance") || !strings.Contains(content, "impact=") {
		t.Fatalf("expected warn context fields: %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("hello")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "dubline.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("ignored")
	logging.WarnWithContext(nil, "ignored", "noop")
}
