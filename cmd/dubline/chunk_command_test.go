package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChunkCommandSplitsFile(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "text.txt")
	if err := os.WriteFile(path, []byte("One two. Three four. Five six."), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}

	out, _, err := runCLI(t, []string{"chunk", path, "--max-chars", "12"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	requireContains(t, out, "One two.")
	requireContains(t, out, "Five six.")
	requireContains(t, out, "3 chunks, budget 12, policy split")
}

func TestChunkCommandReadsStdinAsJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"chunk", "--json", "--max-chars", "200"}, env.configPath, strings.NewReader("Hello there. General Kenobi."))
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	var chunks []struct {
		Index int    `json:"index"`
		Chars int    `json:"chars"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &chunks); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(chunks) != 1 || chunks[0].Index != 0 {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
	if chunks[0].Text != "Hello there. General Kenobi." {
		t.Fatalf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestChunkCommandRejectPolicy(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"chunk", "--max-chars", "5", "--policy", "reject"}, env.configPath, strings.NewReader("This sentence is far too long."))
	if err == nil {
		t.Fatal("expected oversized sentence error")
	}
	requireContains(t, err.Error(), "exceeds chunk budget")
}

func TestChunkCommandEmptyInput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"chunk", "-"}, env.configPath, strings.NewReader(""))
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	requireContains(t, out, "No chunks")
}
