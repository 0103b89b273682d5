// AuraPrep | 2026
// sweeper.go

package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper purges long-expired refresh-token records. The application never
// hard-deletes records itself; this time-based sweep is the only removal
// path.
type Sweeper struct {
	repo     Repository
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(
	repo Repository,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	deleted, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "token sweep failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired refresh tokens purged",
			"deleted", deleted,
		)
	}
}
