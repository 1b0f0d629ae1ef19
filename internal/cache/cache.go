package cache

import (
	"context"
	"time"

	"uniondash/backend/internal/domain"
)

// ResumeCache holds computed rebate resumes per campaign year. Resumes are
// derived state: the cache is a shortcut, never a source of truth, and any
// configuration or revenue write must invalidate it.
type ResumeCache interface {
	Get(ctx context.Context, year int) ([]domain.ClientRebateResume, bool, error)
	Set(ctx context.Context, year int, resumes []domain.ClientRebateResume, ttl time.Duration) error
	Invalidate(ctx context.Context, year int) error
}

type NoopResumeCache struct{}

func (NoopResumeCache) Get(_ context.Context, _ int) ([]domain.ClientRebateResume, bool, error) {
	return nil, false, nil
}

func (NoopResumeCache) Set(_ context.Context, _ int, _ []domain.ClientRebateResume, _ time.Duration) error {
	return nil
}

func (NoopResumeCache) Invalidate(_ context.Context, _ int) error {
	return nil
}
