package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dubline/internal/media/audio"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// Tone returns a sine wave segment of the given frequency and length.
func Tone(t testing.TB, format audio.Format, hz float64, d time.Duration) *audio.Segment {
	t.Helper()

	frames := int(d.Seconds() * float64(format.SampleRate))
	peak := float64(int(1)<<(format.BitDepth-1)-1) * 0.5
	samples := make([]int, 0, frames*format.Channels)
	for i := 0; i < frames; i++ {
		v := int(peak * math.Sin(2*math.Pi*hz*float64(i)/float64(format.SampleRate)))
		for c := 0; c < format.Channels; c++ {
			samples = append(samples, v)
		}
	}
	seg, err := audio.FromSamples(format, samples)
	if err != nil {
		t.Fatalf("tone: %v", err)
	}
	return seg
}

// WAVBytes encodes seg as a WAV file and returns its contents.
func WAVBytes(t testing.TB, seg *audio.Segment) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	if err := audio.WriteWAVFile(path, seg); err != nil {
		t.Fatalf("write wav fixture: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav fixture: %v", err)
	}
	return data
}

// WriteWAV writes seg to path, creating parent directories.
func WriteWAV(t testing.TB, path string, seg *audio.Segment) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := audio.WriteWAVFile(path, seg); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}
