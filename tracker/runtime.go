package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/reelwatch/notify"
	"github.com/hazyhaar/reelwatch/scrape"
	"github.com/hazyhaar/reelwatch/tracker/internal/scheduler"
	"github.com/hazyhaar/reelwatch/tracker/internal/store"
	"github.com/hazyhaar/reelwatch/tracker/internal/worker"
)

// Schema is the tracker database schema, applied at open time.
const Schema = store.Schema

// Notifier delivers best-effort messages about scrape outcomes. Satisfied
// by *notify.Telegram.
type Notifier interface {
	Send(ctx context.Context, botToken, chatID, text string) bool
}

// RecoverStuckJobs requeues running jobs older than threshold. Run once at
// boot, before any worker starts.
func (s *Service) RecoverStuckJobs(ctx context.Context, threshold time.Duration) (int, error) {
	return s.store.RecoverStuckJobs(ctx, threshold)
}

// RunScheduler runs the enqueue loop until ctx is cancelled.
func (s *Service) RunScheduler(ctx context.Context, tick time.Duration) error {
	sch := scheduler.New(s.store, scheduler.Config{
		Tick:   tick,
		Plans:  s.plans,
		Logger: s.logger,
	})
	return sch.Run(ctx)
}

// RunWorker runs one claim/scrape/persist loop until ctx is cancelled.
// Start as many as the deployment wants; the claim transaction keeps them
// from stepping on each other.
func (s *Service) RunWorker(ctx context.Context, engine *scrape.Engine, n Notifier, poll, jobTimeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = s.logger
	}
	w := worker.New(s.store, engine, worker.Config{
		Poll:       poll,
		JobTimeout: jobTimeout,
		Notifier:   n,
		Messages: worker.Messages{
			ParseComplete: notify.ParseComplete,
			ViralAlert:    notify.ViralAlert,
		},
		Logger: logger,
	})
	return w.Run(ctx)
}
