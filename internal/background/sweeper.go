package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/otzivi/authcore/internal/throttle"
)

// Sweeper periodically reclaims expired attempt records from the in-memory
// store. Correctness never depends on it: expiry is decided at read time by
// comparing timestamps, the sweep only frees memory.
type Sweeper struct {
	store    *throttle.MemoryStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewSweeper(store *throttle.MemoryStore, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.store.Sweep(); removed > 0 {
				s.logger.Info("expired attempt records swept", slog.Int("removed", removed))
			}
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
