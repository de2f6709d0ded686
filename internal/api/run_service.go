package api

import (
	"context"
	"errors"

	"dubline/internal/ledger"
)

// RunReader abstracts ledger queries needed by the API.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*ledger.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*ledger.Run, error)
}

// RunService exposes read-only run operations returning API DTOs.
type RunService struct {
	store RunReader
}

// NewRunService constructs a RunService around the provided reader.
func NewRunService(store RunReader) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store}
}

// List returns the most recent runs.
func (s *RunService) List(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// Describe fetches a single run. A missing run yields nil without error.
func (s *RunService) Describe(ctx context.Context, id string) (*Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.GetRun(ctx, id)
	if errors.Is(err, ledger.ErrRunNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dto := FromRun(run)
	return &dto, nil
}
