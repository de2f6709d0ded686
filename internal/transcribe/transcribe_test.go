package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"dubline/internal/media/audio"
	"dubline/internal/services"
)

type pathLocalizer struct {
	path string
	err  error
}

func (p pathLocalizer) Localize(context.Context, string) (string, error) { return p.path, p.err }

type recordingDecoder struct {
	format audio.Format
}

func (r *recordingDecoder) DecodeToWAV(_ context.Context, _, dest string, format audio.Format) error {
	r.format = format
	return os.WriteFile(dest, []byte("RIFF"), 0o644)
}

func TestWhisperXTranscribe(t *testing.T) {
	decoder := &recordingDecoder{}
	w := NewWhisperX(WhisperXConfig{Model: "small", WorkDir: t.TempDir()}, pathLocalizer{path: "/in/ref.flac"}, decoder, nil)

	var gotName string
	var gotArgs []string
	w.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		outputDir := args[slices.Index(args, "--output_dir")+1]
		payload := `{"segments":[{"text":" Hello world. "},{"text":"   "},{"text":"This is a test."}]}`
		return os.WriteFile(filepath.Join(outputDir, "reference.json"), []byte(payload), 0o644)
	})

	text, err := w.Transcribe(context.Background(), "file:///in/ref.flac", "en-US")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Hello world. This is a test." {
		t.Fatalf("unexpected transcript %q", text)
	}
	if gotName != UVXCommand {
		t.Fatalf("expected uvx, got %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"--model small", "--language en", "--vad_method silero", "--device cpu"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if decoder.format != whisperFormat {
		t.Fatalf("expected 16 kHz mono decode, got %s", decoder.format)
	}
}

func TestWhisperXBuildArgsCUDAPyannote(t *testing.T) {
	w := NewWhisperX(WhisperXConfig{CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "hf"}, nil, nil, nil)
	joined := strings.Join(w.buildArgs("a.wav", "/out", ""), " ")
	for _, want := range []string{"--extra-index-url", "--hf_token hf", "--device cuda", "--model " + DefaultModel} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if strings.Contains(joined, "--language") {
		t.Errorf("unexpected language flag without hint: %s", joined)
	}
}

func TestWhisperXRunnerFailure(t *testing.T) {
	w := NewWhisperX(WhisperXConfig{WorkDir: t.TempDir()}, pathLocalizer{path: "/in/ref.flac"}, &recordingDecoder{}, nil)
	w.WithCommandRunner(func(context.Context, string, ...string) error { return errors.New("exit status 1") })
	_, err := w.Transcribe(context.Background(), "file:///in/ref.flac", "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestWhisperXLocalizeFailure(t *testing.T) {
	w := NewWhisperX(WhisperXConfig{WorkDir: t.TempDir()}, pathLocalizer{err: errors.New("missing")}, &recordingDecoder{}, nil)
	if _, err := w.Transcribe(context.Background(), "gs://b/k", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenAITranscribe(t *testing.T) {
	ref := filepath.Join(t.TempDir(), "ref.flac")
	if err := os.WriteFile(ref, []byte("fLaC"), 0o644); err != nil {
		t.Fatal(err)
	}
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("unexpected language %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  Hello world.  "}`))
	}))
	defer server.Close()

	policy := services.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	o := NewOpenAI(OpenAIConfig{APIKey: "sk", BaseURL: server.URL + "/v1"}, pathLocalizer{path: ref}, policy, nil)
	text, err := o.Transcribe(context.Background(), "file://"+ref, "en-US")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Hello world." || calls != 2 {
		t.Fatalf("text=%q calls=%d", text, calls)
	}
}
