package main

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"dubline/internal/media/audio"
	"dubline/internal/testsupport"
)

func TestAlignCommandStretchesToReference(t *testing.T) {
	env := setupCLITestEnv(t)
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	input := filepath.Join(env.baseDir, "dub.wav")
	testsupport.WriteWAV(t, input, testsupport.Tone(t, format, 440, time.Second))
	output := filepath.Join(env.baseDir, "out.wav")

	out, _, err := runCLI(t, []string{"align", input, "--reference", "2", "--out", output, "--strategy", "remap"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	requireContains(t, out, "Ratio:     0.500")

	seg, err := audio.ReadWAVFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if math.Abs(seg.Seconds()-2) > 0.01 {
		t.Fatalf("expected ~2s output, got %.3fs", seg.Seconds())
	}
}

func TestAlignCommandRequiresReference(t *testing.T) {
	env := setupCLITestEnv(t)
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	input := filepath.Join(env.baseDir, "dub.wav")
	testsupport.WriteWAV(t, input, testsupport.Tone(t, format, 440, time.Second))

	if _, _, err := runCLI(t, []string{"align", input}, env.configPath, nil); err == nil {
		t.Fatal("expected missing reference error")
	}
	if _, _, err := runCLI(t, []string{"align", input, "--reference", "0"}, env.configPath, nil); err == nil {
		t.Fatal("expected invalid reference error")
	}
}
