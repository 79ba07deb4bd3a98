// Package sweeper periodically expires stored media past its retention window.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Store is the storage surface the sweeper drives.
type Store interface {
	SweepOlderThan(maxAge time.Duration) (int, error)
}

// Sweeper deletes files older than the retention window on a fixed interval.
type Sweeper struct {
	store     Store
	interval  time.Duration
	retention time.Duration
	logger    zerolog.Logger
}

// New constructs a Sweeper. Interval is how often a sweep runs; retention is
// how long files are kept.
func New(store Store, interval, retention time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{store: store, interval: interval, retention: retention, logger: logger}
}

// Run sweeps once per interval until ctx is cancelled. Sweep failures are
// logged and the loop keeps running; only cancellation stops it.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("retention", s.retention).
		Msg("sweeper: started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	start := time.Now()
	deleted, err := s.store.SweepOlderThan(s.retention)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: sweep failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().
			Int("deleted", deleted).
			Dur("elapsed", time.Since(start)).
			Msg("sweeper: cleaned up old files")
	}
}
