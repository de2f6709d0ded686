package deps

import (
	"os"
	"path/filepath"
	"testing"

	"dubline/internal/config"
	"dubline/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestRequirementsFollowSelectedBackends(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.Provider = config.TranscriptionOpenAI

	names := func(reqs []Requirement) []string {
		out := make([]string, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.Name)
		}
		return out
	}

	if got := names(Requirements(cfg)); len(got) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe only, got %v", got)
	}

	cfg.Transcription.Provider = config.TranscriptionWhisperX
	cfg.LipSync.Enabled = true
	cfg.LipSync.Provider = config.LipSyncWav2Lip
	cfg.LipSync.PythonBinary = "python3"
	got := names(Requirements(cfg))
	want := []string{"FFmpeg", "FFprobe", "uvx", "Python"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
