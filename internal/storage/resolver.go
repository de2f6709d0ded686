package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"dubline/internal/services"
)

// Resolver maps object URIs back to local files.
type Resolver struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewResolver returns a resolver that understands file URIs.
func NewResolver() *Resolver {
	return &Resolver{stores: make(map[string]Store)}
}

// Register adds a backend for its scheme. Local stores need no registration.
func (r *Resolver) Register(store Store) {
	if store == nil || store.Scheme() == SchemeFile {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[store.Scheme()] = store
}

// Localize returns a readable local path for uri, downloading remote objects.
func (r *Resolver) Localize(ctx context.Context, uri string) (string, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if loc.Scheme == SchemeFile {
		if _, err := os.Stat(loc.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", services.Wrap(services.ErrNotFound, "storage", "localize", loc.Path, err)
			}
			return "", fmt.Errorf("storage: stat %s: %w", loc.Path, err)
		}
		return loc.Path, nil
	}
	r.mu.RLock()
	store, ok := r.stores[loc.Scheme]
	r.mu.RUnlock()
	if !ok {
		return "", services.Wrap(services.ErrConfiguration, "storage", "localize", loc.Scheme, ErrUnsupportedScheme)
	}
	return store.Fetch(ctx, loc.Bucket, loc.Key)
}
