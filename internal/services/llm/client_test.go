package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dubline/internal/services"
)

func fastPolicy() services.RetryPolicy {
	return services.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func contentServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func TestClientHealthCheck(t *testing.T) {
	server := contentServer(t, "```json\n{\"ok\":true}\n```")
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(fastPolicy()))
	err := client.HealthCheck(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranslateSendsPromptAndTarget(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "  Hola mundo. Esto es una prueba.\n"}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "translate-model"})
	got, err := client.Translate(context.Background(), "Hello world. This is a test.", "Espanol")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Hola mundo. Esto es una prueba." {
		t.Fatalf("unexpected translation %q", got)
	}
	if captured.Model != "translate-model" {
		t.Fatalf("unexpected model %q", captured.Model)
	}
	if captured.ResponseFormat != nil {
		t.Fatalf("translation must not request JSON output")
	}
	if len(captured.Messages) != 2 || !strings.Contains(captured.Messages[0].Content, "Target language: Espanol") {
		t.Fatalf("unexpected messages %+v", captured.Messages)
	}
	if captured.Messages[1].Content != "Hello world. This is a test." {
		t.Fatalf("unexpected user prompt %q", captured.Messages[1].Content)
	}
}

func TestTranslateBlankTextSkipsRequest(t *testing.T) {
	client := NewClient(Config{APIKey: "key", BaseURL: "http://127.0.0.1:1"})
	got, err := client.Translate(context.Background(), "   ", "Deutsch")
	if err != nil || got != "" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
}

func TestTranslateRequiresTarget(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	if _, err := client.Translate(context.Background(), "Hello.", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Translate(context.Background(), "Hello.", "Francais"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClassifyVoiceToolCallArguments(t *testing.T) {
	var model string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		model = req.Model
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type": "function",
								"id":   "call_1",
								"function": map[string]any{
									"name":      "choose_voice",
									"arguments": `{"voice":"Kore","confidence":1.4,"reason":"female speaker"}`,
								},
							},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "text", VoiceModel: "audio"})
	choice, err := client.ClassifyVoice(context.Background(), "median 200 Hz", []string{"Kore", "Puck"})
	if err != nil {
		t.Fatalf("ClassifyVoice: %v", err)
	}
	if choice.Voice != "Kore" || choice.Confidence != 1 {
		t.Fatalf("unexpected choice %+v", choice)
	}
	if model != "audio" {
		t.Fatalf("expected voice model, got %q", model)
	}
}

func TestChooseVoiceDeltaContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"delta": map[string]any{"content": `{"voice":"Puck","confidence":0.7,"reason":"male"}`}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"})
	voice, err := client.ChooseVoice(context.Background(), "median 120 Hz", nil)
	if err != nil || voice != "Puck" {
		t.Fatalf("ChooseVoice = %q, %v", voice, err)
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "Bonjour."}}},
		})
	}))
	defer server.Close()

	var retried atomic.Int32
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "m"},
		WithRetryPolicy(fastPolicy()),
		WithRetryHook(func(string, error) { retried.Add(1) }),
	)
	got, err := client.Translate(context.Background(), "Hello.", "Francais")
	if err != nil || got != "Bonjour." {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if calls.Load() != 3 || retried.Load() != 2 {
		t.Fatalf("expected 3 calls and 2 retries, got %d and %d", calls.Load(), retried.Load())
	}
}

func TestClientEmptyContentExhaustsRetries(t *testing.T) {
	server := contentServer(t, "")
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "m"}, WithRetryPolicy(fastPolicy()))
	_, err := client.CompleteJSON(context.Background(), "", "system", "user")
	if err == nil {
		t.Fatal("expected empty content failure")
	}
	if !services.IsTransient(err) || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected transient empty-content error with snippet, got %v", err)
	}
}

func TestDecodeLLMJSONProse(t *testing.T) {
	var out VoiceChoice
	if err := DecodeLLMJSON("Sure! {\"voice\":\"Orus\"} hope that helps", &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if out.Voice != "Orus" {
		t.Fatalf("unexpected voice %q", out.Voice)
	}
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected empty payload error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative retry-after accepted")
	}
}
