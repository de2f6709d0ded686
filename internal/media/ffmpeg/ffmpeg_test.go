package ffmpeg

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"dubline/internal/media/audio"
)

func TestExtractReferenceArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	tool := New("").WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})
	dest := filepath.Join(t.TempDir(), "run", "run.flac")
	if err := tool.ExtractReference(context.Background(), "/videos/in.mp4", dest); err != nil {
		t.Fatalf("ExtractReference: %v", err)
	}
	if gotName != DefaultBinary {
		t.Fatalf("unexpected binary %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i /videos/in.mp4", "-ac 1", "-c:a flac", "-sample_fmt s16", dest} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestRunnerErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	tool := New("ffmpeg-custom").WithCommandRunner(func(context.Context, string, ...string) error { return boom })
	err := tool.EncodeMP3(context.Background(), "in.wav", filepath.Join(t.TempDir(), "out.mp3"), "")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ffmpeg mp3") {
		t.Fatalf("expected operation in message, got %v", err)
	}
}

func TestEncodeMP3ArgsDefaultBitrate(t *testing.T) {
	args := strings.Join(EncodeMP3Args("a.wav", "a.mp3", ""), " ")
	if !strings.Contains(args, "-b:a 192k") || !strings.Contains(args, "libmp3lame") {
		t.Fatalf("unexpected args %q", args)
	}
}

func TestDecodeToWAVArgs(t *testing.T) {
	args := strings.Join(DecodeToWAVArgs("tts.mp3", "tts.wav", audio.Format{SampleRate: 24000, Channels: 1, BitDepth: 16}), " ")
	for _, want := range []string{"-ar 24000", "-ac 1", "pcm_s16le"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
}

func TestDecodeBytesReadsRunnerOutput(t *testing.T) {
	format := audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	tool := New("").WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		dest := args[len(args)-1]
		return audio.WriteWAVFile(dest, audio.Silence(format, 250_000_000))
	})
	seg, err := tool.DecodeBytes(context.Background(), []byte("fake mp3"), ".mp3", format)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if seg.Format() != format || seg.Frames() != 2000 {
		t.Fatalf("unexpected segment %s frames=%d", seg.Format(), seg.Frames())
	}
}

func TestAtempoFilterChains(t *testing.T) {
	tests := []struct {
		ratio  float64
		stages int
	}{
		{1.2, 1},
		{0.8, 1},
		{2.0, 1},
		{3.0, 2},
		{0.3, 2},
		{0.1, 4},
	}
	for _, tc := range tests {
		filter, err := AtempoFilter(tc.ratio)
		if err != nil {
			t.Fatalf("AtempoFilter(%v): %v", tc.ratio, err)
		}
		parts := strings.Split(filter, ",")
		if len(parts) != tc.stages {
			t.Fatalf("AtempoFilter(%v) = %q, want %d stages", tc.ratio, filter, tc.stages)
		}
		product := 1.0
		for _, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimPrefix(p, "atempo="), 64)
			if err != nil {
				t.Fatalf("parse stage %q: %v", p, err)
			}
			if v < minAtempo || v > maxAtempo {
				t.Fatalf("stage %v out of range in %q", v, filter)
			}
			product *= v
		}
		if math.Abs(product-tc.ratio) > 1e-5 {
			t.Fatalf("product %v != ratio %v", product, tc.ratio)
		}
	}
	if _, err := AtempoFilter(0); err == nil {
		t.Fatal("expected error for zero ratio")
	}
}
