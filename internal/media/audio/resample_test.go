package audio

import (
	"math"
	"testing"
)

func TestStretchChangesFrameCount(t *testing.T) {
	seg := tone(mono16, 12.0, 200)
	out, err := Stretch(seg, 1.2)
	if err != nil {
		t.Fatalf("Stretch: %v", err)
	}
	if math.Abs(out.Seconds()-10.0) > 0.001 {
		t.Fatalf("expected ~10s, got %v", out.Seconds())
	}
	if out.Format() != seg.Format() {
		t.Fatalf("stretch must keep the nominal format")
	}

	slower, err := Stretch(seg, 0.5)
	if err != nil {
		t.Fatalf("Stretch: %v", err)
	}
	if math.Abs(slower.Seconds()-24.0) > 0.001 {
		t.Fatalf("expected ~24s, got %v", slower.Seconds())
	}
}

func TestStretchRejectsBadFactor(t *testing.T) {
	seg := tone(mono16, 0.1, 200)
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := Stretch(seg, f); err == nil {
			t.Fatalf("expected error for factor %v", f)
		}
	}
}

func TestResamplePreservesDuration(t *testing.T) {
	seg := tone(Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, 1.0, 440)
	out, err := Resample(seg, 24000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if out.Format().SampleRate != 24000 || out.Frames() != 24000 {
		t.Fatalf("unexpected output %s frames=%d", out.Format(), out.Frames())
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	out := interpolate([]int{0, 100}, 1, 5)
	want := []int{0, 25, 50, 75, 100}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("interpolate = %v, want %v", out, want)
		}
	}
}

func TestConvertToNominalFormat(t *testing.T) {
	src := tone(Format{SampleRate: 48000, Channels: 2, BitDepth: 24}, 0.5, 440)
	out, err := Convert(src, mono16)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if out.Format() != mono16 {
		t.Fatalf("unexpected format %s", out.Format())
	}
	if math.Abs(out.Seconds()-0.5) > 0.001 {
		t.Fatalf("duration changed: %v", out.Seconds())
	}
	for _, v := range out.Samples() {
		if v > 32767 || v < -32768 {
			t.Fatalf("sample %d out of 16-bit range", v)
		}
	}
}
