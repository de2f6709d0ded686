package audio

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var mono16 = Format{SampleRate: 24000, Channels: 1, BitDepth: 16}

func tone(format Format, seconds, freq float64) *Segment {
	frames := int(seconds * float64(format.SampleRate))
	data := make([]int, frames*format.Channels)
	for i := 0; i < frames; i++ {
		v := int(8000 * math.Sin(2*math.Pi*freq*float64(i)/float64(format.SampleRate)))
		for c := 0; c < format.Channels; c++ {
			data[i*format.Channels+c] = v
		}
	}
	seg, _ := FromSamples(format, data)
	return seg
}

func TestSegmentDurationAndAppend(t *testing.T) {
	acc := NewSegment(mono16)
	if !acc.Empty() || acc.Seconds() != 0 {
		t.Fatalf("expected empty accumulator")
	}
	if err := acc.Append(Silence(mono16, 500*time.Millisecond)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := acc.Append(tone(mono16, 1.5, 220)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := acc.Seconds(); math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("expected 2s, got %v", got)
	}
	if acc.Duration() != 2*time.Second {
		t.Fatalf("unexpected duration %v", acc.Duration())
	}
}

func TestAppendRejectsFormatMismatch(t *testing.T) {
	acc := NewSegment(mono16)
	other := Silence(Format{SampleRate: 44100, Channels: 1, BitDepth: 16}, time.Second)
	if err := acc.Append(other); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestFromSamplesValidates(t *testing.T) {
	if _, err := FromSamples(Format{SampleRate: 24000, Channels: 2, BitDepth: 16}, []int{1, 2, 3}); err == nil {
		t.Fatal("expected error for partial frame")
	}
	if _, err := FromSamples(Format{SampleRate: 0, Channels: 1, BitDepth: 16}, nil); err == nil {
		t.Fatal("expected error for zero rate")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	seg := tone(Format{SampleRate: 22050, Channels: 2, BitDepth: 16}, 0.25, 440)
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteWAVFile(path, seg); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	decoded, err := ReadWAVFile(path)
	if err != nil {
		t.Fatalf("ReadWAVFile: %v", err)
	}
	if decoded.Format() != seg.Format() {
		t.Fatalf("format changed: %s vs %s", decoded.Format(), seg.Format())
	}
	if decoded.Frames() != seg.Frames() {
		t.Fatalf("frame count changed: %d vs %d", decoded.Frames(), seg.Frames())
	}
	for i, v := range seg.Samples() {
		if decoded.Samples()[i] != v {
			t.Fatalf("sample %d differs: %d vs %d", i, decoded.Samples()[i], v)
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAVBytes([]byte("ID3 definitely not a wav payload")); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestEncodeWAVToFileHandle(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "seg-*.wav")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if err := EncodeWAV(f, tone(mono16, 0.1, 300)); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Fatalf("expected RIFF header")
	}
}

func TestMonoDownmixScales(t *testing.T) {
	seg, _ := FromSamples(Format{SampleRate: 8000, Channels: 2, BitDepth: 16}, []int{32767, 32767, -32767, 0})
	mono := seg.Mono()
	if len(mono) != 2 || math.Abs(mono[0]-1) > 1e-9 || math.Abs(mono[1]+0.5) > 1e-9 {
		t.Fatalf("unexpected mono %v", mono)
	}
}

func TestConcatJoinsInOrder(t *testing.T) {
	format := Format{SampleRate: 8000, Channels: 1, BitDepth: 16}
	first, err := FromSamples(format, []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := FromSamples(format, []int{3})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Concat(format, first, second)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if out.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", out.Frames())
	}

	stereo := Format{SampleRate: 8000, Channels: 2, BitDepth: 16}
	if _, err := Concat(stereo, first); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}
