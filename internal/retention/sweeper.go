// Package retention periodically removes recommendations that expired long
// enough ago to no longer be shown. Alerts are kept for history and are
// never deleted here.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/tandem/internal/store"
)

// Default sweep settings.
const (
	DefaultInterval = time.Hour
	DefaultPeriod   = 30 * 24 * time.Hour
)

// Result counts what one sweep deleted.
type Result struct {
	Recommendations int64
}

// Sweeper deletes recommendations whose expiry is older than the retention period.
type Sweeper struct {
	repo     store.Repository
	interval time.Duration
	period   time.Duration
	now      func() time.Time
}

// NewSweeper creates a sweeper. Non-positive durations fall back to the defaults.
func NewSweeper(repo store.Repository, interval, period time.Duration, now func() time.Time) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{repo: repo, interval: interval, period: period, now: now}
}

// Start runs Sweep on every tick until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention sweeper started", "interval", s.interval, "period", s.period)

		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					slog.Error("Retention sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("Retention sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep deletes recommendations that expired before the retention cutoff.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	cutoff := s.now().Add(-s.period)

	n, err := s.repo.PurgeExpiredRecommendations(ctx, cutoff)
	if err != nil {
		return Result{}, err
	}
	if n > 0 {
		slog.Info("Retention sweep completed", "recommendations_deleted", n, "cutoff", cutoff)
	}
	return Result{Recommendations: n}, nil
}
