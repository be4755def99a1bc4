package cache

import (
	"context"
	"time"
)

// ReportCache holds serialized report results. Invalidate bumps the
// generation after every committed write; readers fetch the generation before
// computing and fold it into the key, so a report computed before a write can
// only be stored under a generation nobody reads any more.
type ReportCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Generation(_ context.Context) (int64, error) {
	return 0, nil
}

func (NoopReportCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}
