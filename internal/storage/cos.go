package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/tencentyun/cos-go-sdk-v5"

	"dubline/internal/services"
)

// COSConfig holds Tencent COS credentials.
type COSConfig struct {
	Region    string
	SecretID  string
	SecretKey string
	// Endpoint overrides the bucket host template; %s receives the bucket name.
	Endpoint string
}

// COS stores objects in Tencent Cloud Object Storage.
type COS struct {
	cfg      COSConfig
	cacheDir string

	mu      sync.Mutex
	clients map[string]*cos.Client
}

// NewCOS returns a COS store. Clients are created lazily per bucket.
func NewCOS(cfg COSConfig, cacheDir string) *COS {
	return &COS{cfg: cfg, cacheDir: cacheDir, clients: make(map[string]*cos.Client)}
}

// Scheme implements Store.
func (c *COS) Scheme() string { return SchemeCOS }

// URI implements Store.
func (c *COS) URI(bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", SchemeCOS, bucket, key)
}

func (c *COS) client(bucket string) (*cos.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[bucket]; ok {
		return client, nil
	}
	location := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", bucket, c.cfg.Region)
	if c.cfg.Endpoint != "" {
		location = fmt.Sprintf(c.cfg.Endpoint, bucket)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "cos client", location, err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  c.cfg.SecretID,
			SecretKey: c.cfg.SecretKey,
		},
	})
	c.clients[bucket] = client
	return client, nil
}

// Fetch downloads the object into the cache directory.
func (c *COS) Fetch(ctx context.Context, bucket, key string) (string, error) {
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	client, err := c.client(bucket)
	if err != nil {
		return "", err
	}
	resp, err := client.Object.Get(ctx, key, nil)
	if err != nil {
		return "", classifyCOS("cos fetch", bucket, key, err)
	}
	defer resp.Body.Close()
	dest := cachePath(c.cacheDir, bucket, key)
	if err := writeAtomic(dest, resp.Body); err != nil {
		return "", services.Transient(err)
	}
	return dest, nil
}

// Upload puts localPath at bucket/key and returns its cos:// URI.
func (c *COS) Upload(ctx context.Context, bucket, key, localPath string) (string, error) {
	if err := validateObject(bucket, key); err != nil {
		return "", err
	}
	client, err := c.client(bucket)
	if err != nil {
		return "", err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "storage", "cos upload", localPath, err)
	}
	defer src.Close()
	opt := cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType(key),
		},
	}
	if _, err := client.Object.Put(ctx, key, src, &opt); err != nil {
		return "", classifyCOS("cos upload", bucket, key, err)
	}
	return c.URI(bucket, key), nil
}

func classifyCOS(op, bucket, key string, err error) error {
	if cos.IsNotFoundError(err) {
		return services.Wrap(services.ErrNotFound, "storage", op, bucket+"/"+key, err)
	}
	if cosErr, ok := cos.IsCOSError(err); ok && cosErr.Response != nil {
		switch status := cosErr.Response.StatusCode; {
		case status == http.StatusForbidden || status == http.StatusUnauthorized:
			return services.Wrap(services.ErrConfiguration, "storage", op, "credentials rejected", err)
		case status < http.StatusInternalServerError && status != http.StatusTooManyRequests:
			return services.Wrap(services.ErrExternalTool, "storage", op, bucket+"/"+key, err)
		}
	}
	return services.Transient(services.Wrap(services.ErrExternalTool, "storage", op, bucket+"/"+key, err))
}

func contentType(key string) string {
	switch ext := extension(key); ext {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

func extension(key string) string {
	for i := len(key) - 1; i >= 0 && key[i] != '/'; i-- {
		if key[i] == '.' {
			return key[i:]
		}
	}
	return ""
}
