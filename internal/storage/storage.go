package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"dubline/internal/config"
	"dubline/internal/services"
)

// URI schemes produced by the backends.
const (
	SchemeFile = "file"
	SchemeGCS  = "gs"
	SchemeCOS  = "cos"
)

// ErrUnsupportedScheme is returned for URIs no registered backend can serve.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// Store fetches and uploads objects.
type Store interface {
	Fetch(ctx context.Context, bucket, key string) (string, error)
	Upload(ctx context.Context, bucket, key, localPath string) (string, error)
	URI(bucket, key string) string
	Scheme() string
}

// Open builds the backend selected by cfg.Storage along with a Resolver that
// understands file URIs and that backend's URIs.
func Open(ctx context.Context, cfg *config.Config) (Store, *Resolver, error) {
	cacheDir := filepath.Join(cfg.Paths.WorkDir, "cache")
	var store Store
	switch cfg.Storage.Backend {
	case config.StorageLocal, "":
		store = NewLocal(cfg.Storage.LocalRoot)
	case config.StorageGCS:
		gcs, err := NewGCS(ctx, cacheDir)
		if err != nil {
			return nil, nil, err
		}
		store = gcs
	case config.StorageCOS:
		store = NewCOS(COSConfig{
			Region:    cfg.Storage.COSRegion,
			SecretID:  cfg.Storage.COSSecretID,
			SecretKey: cfg.Storage.COSSecretKey,
		}, cacheDir)
	default:
		return nil, nil, services.Wrap(services.ErrConfiguration, "storage", "open", fmt.Sprintf("unknown backend %q", cfg.Storage.Backend), nil)
	}
	resolver := NewResolver()
	resolver.Register(store)
	return store, resolver, nil
}

// Location is a parsed object URI.
type Location struct {
	Scheme string
	Bucket string
	Key    string
	// Path is set for file URIs.
	Path string
}

// String renders the location back to a URI.
func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return FileURI(l.Path)
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseURI splits an object URI. Plain paths are treated as file URIs.
func ParseURI(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, services.Wrap(services.ErrValidation, "storage", "parse uri", "empty uri", nil)
	}
	if !strings.Contains(raw, "://") {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return Location{}, fmt.Errorf("storage: resolve path: %w", err)
		}
		return Location{Scheme: SchemeFile, Path: abs}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, services.Wrap(services.ErrValidation, "storage", "parse uri", raw, err)
	}
	if u.Scheme == SchemeFile {
		return Location{Scheme: SchemeFile, Path: filepath.FromSlash(u.Path)}, nil
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Location{}, services.Wrap(services.ErrValidation, "storage", "parse uri", "bucket and key required: "+raw, nil)
	}
	return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
}

// FileURI renders an absolute local path as a file URI.
func FileURI(path string) string {
	return (&url.URL{Scheme: SchemeFile, Path: filepath.ToSlash(path)}).String()
}

// ObjectKey joins key segments with forward slashes.
func ObjectKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "/")
}

func validateObject(bucket, key string) error {
	if strings.TrimSpace(bucket) == "" {
		return services.Wrap(services.ErrValidation, "storage", "object", "bucket required", nil)
	}
	if strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrValidation, "storage", "object", "key required", nil)
	}
	if strings.Contains(key, "..") {
		return services.Wrap(services.ErrValidation, "storage", "object", "key must not contain '..'", nil)
	}
	return nil
}

// cachePath is where a remote object is materialized locally.
func cachePath(cacheDir, bucket, key string) string {
	return filepath.Join(cacheDir, bucket, filepath.FromSlash(key))
}

// writeAtomic streams r into path through a temp file in the same directory.
func writeAtomic(path string, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: ensure dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".partial-*")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("storage: write: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}
