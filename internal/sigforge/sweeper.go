package sigforge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Sweeper periodically evicts expired replay-cache entries. Lazy expiry
// already keeps results correct; the sweeper only bounds memory.
type Sweeper struct {
	cache    *ReplayCache
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewSweeper creates a sweeper over the cache. Sweeps every quarter window.
func NewSweeper(cache *ReplayCache, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cache:    cache,
		interval: cache.Window() / 4,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is active.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.safeSweep()
		}
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *Sweeper) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in replay cache sweeper", "panic", fmt.Sprint(r))
		}
	}()

	if evicted := s.cache.SweepOnce(); evicted > 0 {
		s.logger.Debug("swept replay cache", "evicted", evicted, "remaining", s.cache.Len())
	}
}
