package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fieldflow/pkg/logger"
)

// DefaultSweepInterval bounds storage growth from entries that are written
// once and never read again.
const DefaultSweepInterval = time.Hour

// Sweeper periodically evicts expired entries independent of read access.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
}

// NewSweeper creates a sweeper for the given cache. A non-positive interval
// falls back to DefaultSweepInterval.
func NewSweeper(cache *Cache, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{cache: cache, interval: interval}
}

// Start runs the sweep loop until the context is cancelled. It blocks and
// should typically be run in a separate goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			logger.Log.Debug("cache sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if removed := s.cache.RemoveExpired(ctx); removed > 0 {
		logger.Log.Info("cache sweep evicted expired entries", zap.Int("removed", removed))
	}
}
