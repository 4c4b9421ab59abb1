package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/model"
)

// DefaultSyncInterval is the periodic sync interval.
const DefaultSyncInterval = 2 * time.Minute

// Scheduler runs Sync for one tenant on an interval.
type Scheduler struct {
	engine       *Engine
	restaurantID string
	interval     time.Duration
	logger       *zap.Logger

	// OnResult, if set, receives every successful sync result.
	OnResult func(SyncResult)
}

// NewScheduler creates a scheduler. A non-positive interval uses
// DefaultSyncInterval.
func NewScheduler(e *Engine, restaurantID string, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		engine:       e,
		restaurantID: restaurantID,
		interval:     interval,
		logger:       e.logger.Named("scheduler"),
	}
}

// Run syncs immediately and then every interval until ctx is done or the
// tenant's session ends. Other sync failures are logged and never stop the
// loop. Returns ctx.Err(), or nil after a logout.
func (s *Scheduler) Run(ctx context.Context) error {
	gen, err := s.engine.store.SessionGeneration(ctx, s.restaurantID)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnce(ctx, gen) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.runOnce(ctx, gen) {
				return nil
			}
		}
	}
}

// runOnce reports whether the session ended.
func (s *Scheduler) runOnce(ctx context.Context, gen int64) bool {
	current, err := s.engine.store.SessionGeneration(ctx, s.restaurantID)
	if err == nil && current != gen {
		s.logger.Info("session ended, stopping scheduler", logging.Tenant(s.restaurantID))
		return true
	}

	result, err := s.engine.Sync(ctx, s.restaurantID)
	if err != nil {
		if errors.Is(err, model.ErrSessionEnded) {
			s.logger.Info("session ended, stopping scheduler", logging.Tenant(s.restaurantID))
			return true
		}
		if ctx.Err() == nil {
			s.logger.Error("scheduled sync failed", logging.Tenant(s.restaurantID), zap.Error(err))
		}
		return false
	}
	if s.OnResult != nil {
		s.OnResult(result)
	}
	return false
}
