package synth

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dubline/internal/media/audio"
	"dubline/internal/services"
	"dubline/internal/textchunk"
	"dubline/internal/voice"
)

var nominal = audio.Format{SampleRate: 8000, Channels: 1, BitDepth: 16}

// wavBytes renders a constant-valued mono clip so chunk order is visible in
// the concatenated samples.
func wavBytes(t *testing.T, value int, frames int) []byte {
	t.Helper()
	data := make([]int, frames)
	for i := range data {
		data[i] = value
	}
	seg, err := audio.FromSamples(nominal, data)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := audio.WriteWAVFile(path, seg); err != nil {
		t.Fatal(err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

type fakeTTS struct {
	t       *testing.T
	calls   atomic.Int32
	mu      sync.Mutex
	seen    []string
	respond func(call int32, text string) ([]byte, error)
}

func (f *fakeTTS) Synthesize(_ context.Context, text, languageCode string, profile voice.Profile) ([]byte, error) {
	call := f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, languageCode+"/"+profile.String()+"/"+text)
	f.mu.Unlock()
	return f.respond(call, text)
}

func (f *fakeTTS) Encoding() string { return "wav" }

func fastRetry() services.RetryPolicy {
	return services.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func chunksOf(texts ...string) []textchunk.Chunk {
	out := make([]textchunk.Chunk, len(texts))
	for i, text := range texts {
		out[i] = textchunk.Chunk{Index: i, Text: text}
	}
	return out
}

func TestSynthesizeEmptyChunksSkipsTTS(t *testing.T) {
	tts := &fakeTTS{t: t, respond: func(int32, string) ([]byte, error) { return nil, errors.New("unexpected") }}
	o := New(tts, NewDecoder(nominal, nil), Options{Workers: 2})
	seg, err := o.Synthesize(context.Background(), nil, Voice{LanguageCode: "es-US", Profile: voice.Puck})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !seg.Empty() || seg.Seconds() != 0 {
		t.Fatalf("expected empty segment, got %v seconds", seg.Seconds())
	}
	if tts.calls.Load() != 0 {
		t.Fatalf("TTS called %d times", tts.calls.Load())
	}
}

func TestSynthesizePreservesChunkOrder(t *testing.T) {
	texts := []string{"one. ", "two. ", "three. ", "four. ", "five."}
	values := map[string]int{"one. ": 100, "two. ": 200, "three. ": 300, "four. ": 400, "five.": 500}
	delays := map[string]time.Duration{"one. ": 40, "two. ": 30, "three. ": 20, "four. ": 10, "five.": 0}
	tts := &fakeTTS{t: t}
	tts.respond = func(_ int32, text string) ([]byte, error) {
		// Earlier chunks finish last.
		time.Sleep(delays[text] * time.Millisecond)
		return wavBytes(t, values[text], 80), nil
	}
	o := New(tts, NewDecoder(nominal, nil), Options{Workers: len(texts)})
	seg, err := o.Synthesize(context.Background(), chunksOf(texts...), Voice{LanguageCode: "fr-FR", Profile: voice.Aoede})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	samples := seg.Samples()
	if len(samples) != 80*len(texts) {
		t.Fatalf("expected %d samples, got %d", 80*len(texts), len(samples))
	}
	for i, text := range texts {
		if got := samples[i*80]; got != values[text] {
			t.Fatalf("chunk %d: expected sample %d, got %d", i, values[text], got)
		}
	}
	if math.Abs(seg.Seconds()-0.05) > 1e-9 {
		t.Fatalf("unexpected duration %v", seg.Seconds())
	}
	if tts.calls.Load() != int32(len(texts)) {
		t.Fatalf("expected one TTS call per chunk, got %d", tts.calls.Load())
	}
}

func TestSynthesizeRetriesTransientFailures(t *testing.T) {
	tts := &fakeTTS{t: t}
	tts.respond = func(call int32, _ string) ([]byte, error) {
		if call == 1 {
			return nil, services.Transient(errors.New("503"))
		}
		return wavBytes(t, 7, 16), nil
	}
	o := New(tts, NewDecoder(nominal, nil), Options{Workers: 1, Retry: fastRetry()})
	seg, err := o.Synthesize(context.Background(), chunksOf("Hola."), Voice{LanguageCode: "es-US", Profile: voice.Puck})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if seg.Frames() != 16 || tts.calls.Load() != 2 {
		t.Fatalf("frames=%d calls=%d", seg.Frames(), tts.calls.Load())
	}
}

func TestSynthesizeFailureNamesChunk(t *testing.T) {
	permanent := services.Wrap(services.ErrValidation, "tts", "google", "bad voice", nil)
	tts := &fakeTTS{t: t}
	tts.respond = func(_ int32, text string) ([]byte, error) {
		if text == "bad. " {
			return nil, permanent
		}
		return wavBytes(t, 1, 8), nil
	}
	o := New(tts, NewDecoder(nominal, nil), Options{Workers: 1, Retry: fastRetry()})
	_, err := o.Synthesize(context.Background(), chunksOf("good. ", "bad. ", "later."), Voice{LanguageCode: "de-DE", Profile: voice.Kore})
	var chunkErr *ChunkError
	if !errors.As(err, &chunkErr) {
		t.Fatalf("expected ChunkError, got %v", err)
	}
	if chunkErr.Index != 1 || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unexpected error %v", err)
	}
	// Permanent failures are not retried and later chunks never start with one worker.
	if tts.calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", tts.calls.Load())
	}
}

func TestSynthesizeCancelledReturnsNoSegment(t *testing.T) {
	tts := &fakeTTS{t: t, respond: func(int32, string) ([]byte, error) { return wavBytes(t, 1, 8), nil }}
	o := New(tts, NewDecoder(nominal, nil), Options{Workers: 1, Retry: fastRetry()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seg, err := o.Synthesize(ctx, chunksOf("one. ", "two."), Voice{LanguageCode: "fr-FR", Profile: voice.Puck})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if seg != nil {
		t.Fatalf("expected no partial segment, got %.3fs", seg.Seconds())
	}
	if tts.calls.Load() != 0 {
		t.Fatalf("expected no TTS calls, got %d", tts.calls.Load())
	}
}

func TestSynthesizeSkipsBlankChunks(t *testing.T) {
	tts := &fakeTTS{t: t, respond: func(int32, string) ([]byte, error) { return wavBytes(t, 3, 10), nil }}
	o := New(tts, NewDecoder(nominal, nil), Options{Workers: 2})
	seg, err := o.Synthesize(context.Background(), chunksOf("Hi. ", "  \n", "Bye."), Voice{LanguageCode: "hi-IN", Profile: voice.Orus})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if seg.Frames() != 20 || tts.calls.Load() != 2 {
		t.Fatalf("frames=%d calls=%d", seg.Frames(), tts.calls.Load())
	}
}

func TestSynthesizeRejectsUnknownProfile(t *testing.T) {
	tts := &fakeTTS{t: t, respond: func(int32, string) ([]byte, error) { return nil, nil }}
	o := New(tts, NewDecoder(nominal, nil), Options{})
	if _, err := o.Synthesize(context.Background(), chunksOf("x."), Voice{LanguageCode: "es-US", Profile: "Nova"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type stubTranscoder struct {
	ext string
}

func (s *stubTranscoder) DecodeBytes(_ context.Context, _ []byte, ext string, format audio.Format) (*audio.Segment, error) {
	s.ext = ext
	return audio.Silence(format, 100*time.Millisecond), nil
}

func TestDecoderConvertsAndFallsBack(t *testing.T) {
	stereo := audio.Format{SampleRate: 16000, Channels: 2, BitDepth: 16}
	seg := audio.Silence(stereo, 200*time.Millisecond)
	path := filepath.Join(t.TempDir(), "s.wav")
	if err := audio.WriteWAVFile(path, seg); err != nil {
		t.Fatal(err)
	}
	payload, _ := os.ReadFile(path)

	transcoder := &stubTranscoder{}
	d := NewDecoder(nominal, transcoder)
	out, err := d.Decode(context.Background(), payload, "wav")
	if err != nil {
		t.Fatalf("Decode wav: %v", err)
	}
	if out.Format() != nominal || math.Abs(out.Seconds()-0.2) > 0.001 {
		t.Fatalf("unexpected output %s %v", out.Format(), out.Seconds())
	}

	if _, err := d.Decode(context.Background(), []byte("ID3"), "mp3"); err != nil {
		t.Fatalf("Decode mp3: %v", err)
	}
	if transcoder.ext != ".mp3" {
		t.Fatalf("expected .mp3 transcode, got %q", transcoder.ext)
	}

	if _, err := NewDecoder(nominal, nil).Decode(context.Background(), []byte("x"), "mp3"); err == nil {
		t.Fatal("expected error without transcoder")
	}
}
