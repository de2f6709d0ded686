package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"

	"dubline/internal/services"
)

// GCS stores objects in Google Cloud Storage. Credentials come from
// Application Default Credentials.
type GCS struct {
	client   *gcs.Client
	cacheDir string
}

// NewGCS dials the storage API.
func NewGCS(ctx context.Context, cacheDir string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "gcs client", "", err)
	}
	return &GCS{client: client, cacheDir: cacheDir}, nil
}

// Scheme implements Store.
func (g *GCS) Scheme() string { return SchemeGCS }

// URI implements Store.
func (g *GCS) URI(bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", SchemeGCS, bucket, key)
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Fetch downloads the object into the cache directory.
func (g *GCS) Fetch(ctx context.Context, bucket, key string) (string, error) {
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	reader, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return "", services.Wrap(services.ErrNotFound, "storage", "gcs fetch", bucket+"/"+key, err)
		}
		return "", services.Transient(services.Wrap(services.ErrExternalTool, "storage", "gcs fetch", bucket+"/"+key, err))
	}
	defer reader.Close()
	dest := cachePath(g.cacheDir, bucket, key)
	if err := writeAtomic(dest, reader); err != nil {
		return "", services.Transient(err)
	}
	return dest, nil
}

// Upload writes localPath to bucket/key and returns its gs:// URI.
func (g *GCS) Upload(ctx context.Context, bucket, key, localPath string) (string, error) {
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "gcs upload", localPath, err)
	}
	defer src.Close()

	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(writer, src); err != nil {
		_ = writer.Close()
		return "", services.Transient(services.Wrap(services.ErrExternalTool, "storage", "gcs upload", bucket+"/"+key, err))
	}
	if err := writer.Close(); err != nil {
		return "", services.Transient(services.Wrap(services.ErrExternalTool, "storage", "gcs upload", bucket+"/"+key, err))
	}
	return g.URI(bucket, key), nil
}
