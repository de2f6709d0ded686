package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dubline/internal/config"
	"dubline/internal/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		raw    string
		want   Location
		errors bool
	}{
		{raw: "gs://media/run/video.mp4", want: Location{Scheme: SchemeGCS, Bucket: "media", Key: "run/video.mp4"}},
		{raw: "cos://dub-1250000000/a/b.flac", want: Location{Scheme: SchemeCOS, Bucket: "dub-1250000000", Key: "a/b.flac"}},
		{raw: "file:///srv/media/x.mp3", want: Location{Scheme: SchemeFile, Path: "/srv/media/x.mp3"}},
		{raw: "gs://bucket-only", errors: true},
		{raw: "", errors: true},
	}
	for _, tt := range tests {
		got, err := ParseURI(tt.raw)
		if tt.errors {
			if !errors.Is(err, services.ErrValidation) {
				t.Errorf("ParseURI(%q): expected validation error, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseURI(%q) = %+v, %v", tt.raw, got, err)
		}
		if got.String() != tt.raw {
			t.Errorf("round trip %q -> %q", tt.raw, got.String())
		}
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("run-1", "/es-US_output.mp3"); got != "run-1/es-US_output.mp3" {
		t.Fatalf("ObjectKey = %q", got)
	}
}

func TestLocalFetchAndUpload(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root)
	ctx := context.Background()

	if _, err := store.Fetch(ctx, "media", "missing.mp4"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	writeFile(t, filepath.Join(root, "media", "in", "video.mp4"), "video")
	path, err := store.Fetch(ctx, "media", "in/video.mp4")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "video" {
		t.Fatalf("unexpected content %q", data)
	}

	src := filepath.Join(t.TempDir(), "out.mp3")
	writeFile(t, src, "mp3")
	uri, err := store.Upload(ctx, "media", "run/es-US_output.mp3", src)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "/media/run/es-US_output.mp3") {
		t.Fatalf("unexpected uri %q", uri)
	}

	resolver := NewResolver()
	resolver.Register(store)
	local, err := resolver.Localize(ctx, uri)
	if err != nil {
		t.Fatalf("Localize: %v", err)
	}
	if data, _ := os.ReadFile(local); string(data) != "mp3" {
		t.Fatalf("unexpected uploaded content %q", data)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	store := NewLocal(t.TempDir())
	if _, err := store.Fetch(context.Background(), "media", "../etc/passwd"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolverUnknownScheme(t *testing.T) {
	_, err := NewResolver().Localize(context.Background(), "s3://bucket/key")
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected unsupported scheme, got %v", err)
	}
}

func TestCOSRoundTrip(t *testing.T) {
	var mu sync.Mutex
	objects := map[string][]byte{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Errorf("missing signature on %s %s", r.Method, r.URL.Path)
		}
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
				return
			}
			_, _ = w.Write(body)
		}
	}))
	defer server.Close()

	store := NewCOS(COSConfig{SecretID: "id", SecretKey: "key", Endpoint: server.URL + "/%s"}, t.TempDir())
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "ref.flac")
	writeFile(t, src, "flac-bytes")
	uri, err := store.Upload(ctx, "dub", "run-1/run-1.flac", src)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uri != "cos://dub/run-1/run-1.flac" {
		t.Fatalf("unexpected uri %q", uri)
	}

	resolver := NewResolver()
	resolver.Register(store)
	local, err := resolver.Localize(ctx, uri)
	if err != nil {
		t.Fatalf("Localize: %v", err)
	}
	if data, _ := os.ReadFile(local); string(data) != "flac-bytes" {
		t.Fatalf("unexpected fetched content %q", data)
	}

	if _, err := store.Fetch(ctx, "dub", "run-1/absent.mp3"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenLocalBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Storage.LocalRoot = t.TempDir()
	store, resolver, err := Open(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Scheme() != SchemeFile || resolver == nil {
		t.Fatalf("unexpected store %T", store)
	}

	cfg.Storage.Backend = "s3"
	if _, _, err := Open(context.Background(), &cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
