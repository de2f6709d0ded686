package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dubline/internal/services"
)

// Local stores objects under a root directory.
type Local struct {
	root string
}

// NewLocal returns a store rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Scheme implements Store.
func (l *Local) Scheme() string { return SchemeFile }

// Path returns the filesystem path of an object.
func (l *Local) Path(bucket, key string) string {
	return filepath.Join(l.root, bucket, filepath.FromSlash(key))
}

// URI returns the file URI an object has or would have.
func (l *Local) URI(bucket, key string) string {
	path := l.Path(bucket, key)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return FileURI(path)
}

// Fetch returns the object's path; nothing is copied.
func (l *Local) Fetch(_ context.Context, bucket, key string) (string, error) {
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	path := l.Path(bucket, key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "storage", "fetch", bucket+"/"+key, err)
		}
		return "", fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return path, nil
}

// Upload copies localPath into the tree and returns its file URI.
func (l *Local) Upload(_ context.Context, bucket, key, localPath string) (string, error) {
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	dest := l.Path(bucket, key)
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("storage: resolve %s: %w", dest, err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "upload", localPath, err)
	}
	defer src.Close()
	if err := writeAtomic(abs, src); err != nil {
		return "", err
	}
	return FileURI(abs), nil
}
