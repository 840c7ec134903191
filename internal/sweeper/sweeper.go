// Package sweeper periodically removes expired sessions from the session
// store.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ts-dashboard/internal/session"
)

// Service purges sessions older than MaxAge every Interval.
type Service struct {
	purger   session.Purger
	maxAge   time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a sweeper.
func NewService(purger session.Purger, maxAge, interval time.Duration, logger *zap.Logger) *Service {
	return &Service{
		purger:   purger,
		maxAge:   maxAge,
		interval: interval,
		log:      logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("starting session sweeper",
		zap.Duration("max_age", s.maxAge), zap.Duration("interval", s.interval))

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce removes every session last written more than MaxAge ago.
func (s *Service) SweepOnce(ctx context.Context) int64 {
	n, err := s.purger.Purge(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		s.log.Error("session sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.log.Info("purged expired sessions", zap.Int64("count", n))
	}
	return n
}
