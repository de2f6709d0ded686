package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"
)

func fixedOutput(payload string) OutputRunner {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(payload), nil
	}
}

func TestDurationFromFormat(t *testing.T) {
	p := New("").WithCommandRunner(fixedOutput(`{"streams":[{"index":0,"codec_type":"audio","codec_name":"flac"}],"format":{"duration":"12.480000"}}`))
	d, err := p.Duration(context.Background(), "/tmp/ref.flac")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if math.Abs(d-12.48) > 1e-9 {
		t.Fatalf("unexpected duration %v", d)
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Duration: "30"}, {CodecType: "audio", Duration: "9.5"}},
	}
	if got := result.DurationSeconds(); got != 9.5 {
		t.Fatalf("expected stream duration, got %v", got)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected one audio stream")
	}
}

func TestDurationMissing(t *testing.T) {
	p := New("").WithCommandRunner(fixedOutput(`{"streams":[],"format":{"duration":"N/A"}}`))
	if _, err := p.Duration(context.Background(), "x.flac"); !errors.Is(err, ErrNoDuration) {
		t.Fatalf("expected ErrNoDuration, got %v", err)
	}
}

func TestInspectErrors(t *testing.T) {
	if _, err := New("").Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
	boom := errors.New("exit 1")
	p := New("").WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) { return nil, boom })
	if _, err := p.Inspect(context.Background(), "a.flac"); !errors.Is(err, boom) {
		t.Fatalf("expected runner error, got %v", err)
	}
	bad := New("").WithCommandRunner(fixedOutput("not json"))
	if _, err := bad.Inspect(context.Background(), "a.flac"); err == nil {
		t.Fatal("expected parse error")
	}
}
