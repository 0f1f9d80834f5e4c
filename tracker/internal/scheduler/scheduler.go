// Package scheduler periodically enqueues parse jobs for every eligible
// tenant. A tenant is eligible when it is active, has enabled reels, has no
// jobs in flight, and its tariff parse interval has elapsed since the last
// completed job.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/reelwatch/tracker/internal/store"
	"github.com/hazyhaar/reelwatch/tracker/internal/tariff"
)

// Config tunes the scheduler loop.
type Config struct {
	Tick   time.Duration
	Plans  tariff.Plans
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Tick <= 0 {
		c.Tick = 30 * time.Second
	}
	if c.Plans == nil {
		c.Plans = tariff.Defaults()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scheduler walks active tenants on a fixed tick and enqueues due work.
type Scheduler struct {
	store  *store.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a Scheduler over the given store.
func New(st *store.Store, cfg Config) *Scheduler {
	cfg.defaults()
	return &Scheduler{store: st, cfg: cfg, logger: cfg.Logger}
}

// Run loops until ctx is cancelled. The first sweep happens immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting", "tick", s.cfg.Tick)

	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("scheduler sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("scheduler sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass over all active tenants. Per-tenant failures are
// logged and do not stop the sweep.
func (s *Scheduler) Sweep(ctx context.Context) error {
	tenants, err := s.store.ActiveUsers(ctx)
	if err != nil {
		return err
	}

	for _, tn := range tenants {
		n, err := s.SweepTenant(ctx, tn.User)
		if err != nil {
			s.logger.Error("tenant sweep failed", "user_id", tn.User.ID, "error", err)
			continue
		}
		if n > 0 {
			s.logger.Info("enqueued parse jobs",
				"user_id", tn.User.ID, "tariff", tn.User.Tariff, "jobs", n)
		}
	}
	return nil
}

// SweepTenant enqueues jobs for one tenant's enabled reels if the tenant is
// due. Returns the number of jobs created.
func (s *Scheduler) SweepTenant(ctx context.Context, u *store.User) (int, error) {
	plan := s.cfg.Plans.Resolve(u.Tariff)

	due, err := s.tenantDue(ctx, u.ID, plan.ParseInterval)
	if err != nil {
		return 0, err
	}
	if !due {
		return 0, nil
	}

	reels, err := s.store.ListEnabledReels(ctx, u.ID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, r := range reels {
		_, ok, err := s.store.EnqueueJob(ctx, r.ID, u.ID, plan.Priority)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// tenantDue reports whether a tenant may receive a new parse round: nothing
// in flight and the tariff interval elapsed since the last completed job.
func (s *Scheduler) tenantDue(ctx context.Context, userID string, interval time.Duration) (bool, error) {
	inFlight, err := s.store.InFlightCount(ctx, userID)
	if err != nil {
		return false, err
	}
	if inFlight > 0 {
		return false, nil
	}

	last, err := s.store.LastCompletedAt(ctx, userID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	return time.Now().UnixMilli() >= *last+interval.Milliseconds(), nil
}
