package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/cache"
	"salesdesk/backend/internal/store"
)

const dateLayout = "2006-01-02"

type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	cacheTTL time.Duration
	now      func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache, cacheTTL time.Duration) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	return &Service{
		repo:     repo,
		reports:  reports,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ErrorKind names the sentinel behind err, for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrValidation):
		return "validation"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

// afterWrite drops cached reports once a write has committed.
func (s *Service) afterWrite(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("report cache invalidation failed")
	}
}

// parseDay accepts YYYY-MM-DD or RFC3339 and returns UTC midnight of that day.
// An empty value means today.
func (s *Service) parseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return truncateDay(s.now()), nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", store.ErrValidation, value)
	}
	return truncateDay(t.UTC()), nil
}

// parseTimestamp keeps the instant of an RFC3339 value. A bare YYYY-MM-DD
// means UTC midnight of that day, and an empty value means now.
func (s *Service) parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.now(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return s.parseDay(value)
}

// parseRange turns optional start/end days into a half-open [from, to) window.
func (s *Service) parseRange(startDate string, endDate string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if strings.TrimSpace(startDate) != "" {
		day, err := s.parseDay(startDate)
		if err != nil {
			return nil, nil, err
		}
		from = &day
	}
	if strings.TrimSpace(endDate) != "" {
		day, err := s.parseDay(endDate)
		if err != nil {
			return nil, nil, err
		}
		next := day.AddDate(0, 0, 1)
		to = &next
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("%w: startDate must not be after endDate", store.ErrValidation)
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
