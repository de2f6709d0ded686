package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"

	"dubline/internal/config"
	"dubline/internal/services"
	"dubline/internal/voice"
)

func TestGoogleSynthesize(t *testing.T) {
	var captured synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "gk" {
			t.Errorf("missing api key")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("RIFFdata")),
		})
	}))
	defer server.Close()

	g := NewGoogle(GoogleConfig{APIKey: "gk", BaseURL: server.URL + "/v1"})
	audio, err := g.Synthesize(context.Background(), "Hola mundo. ", "es-US", voice.Puck)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "RIFFdata" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if captured.Voice.Name != "es-US-Chirp3-HD-Puck" || captured.Voice.LanguageCode != "es-US" {
		t.Fatalf("unexpected voice %+v", captured.Voice)
	}
	if captured.AudioConfig.AudioEncoding != "LINEAR16" || captured.Input.Text != "Hola mundo. " {
		t.Fatalf("unexpected request %+v", captured)
	}
	if g.Encoding() != EncodingWAV {
		t.Fatalf("expected wav encoding, got %s", g.Encoding())
	}
}

func TestGoogleStatusClassification(t *testing.T) {
	status := http.StatusTooManyRequests
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	g := NewGoogle(GoogleConfig{APIKey: "gk", BaseURL: server.URL})
	_, err := g.Synthesize(context.Background(), "Hi.", "fr-FR", voice.Kore)
	if !services.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}

	status = http.StatusBadRequest
	_, err = g.Synthesize(context.Background(), "Hi.", "xx-XX", voice.Kore)
	if services.IsTransient(err) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGoogleRequiresKeyAndProfile(t *testing.T) {
	if _, err := NewGoogle(GoogleConfig{}).Synthesize(context.Background(), "Hi.", "de-DE", voice.Puck); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := NewGoogle(GoogleConfig{APIKey: "k"}).Synthesize(context.Background(), "Hi.", "de-DE", voice.Profile("Bob")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGoogleEncodingNames(t *testing.T) {
	if NewGoogle(GoogleConfig{AudioEncoding: "mp3"}).Encoding() != EncodingMP3 {
		t.Fatal("MP3 encoding not mapped")
	}
	if NewGoogle(GoogleConfig{AudioEncoding: "OGG_OPUS"}).Encoding() != EncodingOgg {
		t.Fatal("OGG_OPUS encoding not mapped")
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var req openai.CreateSpeechRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3mp3"))
	}))
	defer server.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "sk", BaseURL: server.URL + "/v1"})
	audio, err := o.Synthesize(context.Background(), "Bonjour.", "fr-FR", voice.Charon)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3mp3" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if req.Voice != openai.VoiceOnyx || req.Model != openai.TTSModel1 {
		t.Fatalf("unexpected request %+v", req)
	}
	if o.Encoding() != EncodingMP3 {
		t.Fatalf("unexpected encoding %s", o.Encoding())
	}
}

func TestVoiceForCoversProfiles(t *testing.T) {
	for _, profile := range voice.All() {
		if _, ok := profileVoices[profile]; !ok {
			t.Errorf("profile %s has no OpenAI voice", profile)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	if _, ok := FromConfig(&cfg).(*Google); !ok {
		t.Fatal("expected Google backend by default")
	}
	cfg.TTS.Provider = config.TTSOpenAI
	if _, ok := FromConfig(&cfg).(*OpenAI); !ok {
		t.Fatal("expected OpenAI backend")
	}
}
