// Package worker drains the parse-job queue: claim, scrape, persist,
// notify. Several workers may run against the same store; the claim is
// atomic so each job is processed exactly once.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/reelwatch/scrape"
	"github.com/hazyhaar/reelwatch/tracker/internal/store"
)

// Scrapers resolves a platform to its scraping strategy. Satisfied by
// *scrape.Engine.
type Scrapers interface {
	Scrape(ctx context.Context, p scrape.Platform, url string) (*scrape.Metrics, error)
}

// Notifier delivers best-effort messages. Satisfied by *notify.Telegram.
type Notifier interface {
	Send(ctx context.Context, botToken, chatID, text string) bool
}

// Messages builds notification texts from scrape outcomes.
type Messages struct {
	ParseComplete func(title, url string, views, likes, comments, shares, growth int64) string
	ViralAlert    func(title, url string, growth int64) string
}

// Config tunes the worker loop.
type Config struct {
	// Poll is the idle delay between claim attempts. Default 5s.
	Poll time.Duration

	// JobTimeout bounds one scrape. Default 2m.
	JobTimeout time.Duration

	Notifier Notifier
	Messages Messages
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.Poll <= 0 {
		c.Poll = 5 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 2 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Worker processes parse jobs until its context ends.
type Worker struct {
	store    *store.Store
	scrapers Scrapers
	cfg      Config
	logger   *slog.Logger
}

// New creates a Worker over the store and scraper engine.
func New(st *store.Store, sc Scrapers, cfg Config) *Worker {
	cfg.defaults()
	return &Worker{store: st, scrapers: sc, cfg: cfg, logger: cfg.Logger}
}

// Run claims and processes jobs until ctx is cancelled. An empty queue
// sleeps one poll interval; a drained job is followed immediately by the
// next claim.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting", "poll", w.cfg.Poll, "job_timeout", w.cfg.JobTimeout)

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker shutting down")
			return ctx.Err()
		}

		job, err := w.store.ClaimNextJob(ctx)
		if err != nil {
			w.logger.Error("claim failed", "error", err)
			if err := sleepCtx(ctx, w.cfg.Poll); err != nil {
				return err
			}
			continue
		}
		if job == nil {
			if err := sleepCtx(ctx, w.cfg.Poll); err != nil {
				return err
			}
			continue
		}

		w.ProcessJob(ctx, job)
	}
}

// ProcessJob runs one claimed job to a terminal state. Panics inside the
// scrape path are converted into a failed job so the queue never wedges.
func (w *Worker) ProcessJob(ctx context.Context, job *store.ParseJob) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panicked", "job_id", job.ID, "panic", r)
			w.failJob(ctx, job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	reel, err := w.store.GetReel(ctx, job.ReelID)
	if err != nil {
		w.failJob(ctx, job.ID, fmt.Sprintf("load reel: %v", err))
		return
	}
	if reel == nil {
		w.failJob(ctx, job.ID, "reel not found")
		return
	}

	platform, err := scrape.ParsePlatform(reel.Platform)
	if err != nil {
		w.failJob(ctx, job.ID, err.Error())
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	m, err := w.scrapers.Scrape(jobCtx, platform, reel.URL)
	cancel()
	if err != nil {
		w.failJob(ctx, job.ID, err.Error())
		return
	}
	if m == nil {
		w.failJob(ctx, job.ID, "no metrics extracted")
		return
	}

	w.persist(ctx, job, reel, m)
}

// persist writes the scrape result everywhere it belongs and fires
// notifications. Storage errors fail the job; notification outcomes never do.
func (w *Worker) persist(ctx context.Context, job *store.ParseJob, reel *store.Reel, m *scrape.Metrics) {
	prevViews, err := w.store.PreviousViews(ctx, reel.ID)
	if err != nil {
		w.logger.Warn("previous views lookup failed", "reel_id", reel.ID, "error", err)
	}

	if err := w.store.UpdateReelMetrics(ctx, reel.ID, m.Views, m.Likes, m.Comments, m.Shares); err != nil {
		w.failJob(ctx, job.ID, fmt.Sprintf("update metrics: %v", err))
		return
	}
	h := &store.HistoryEntry{
		ReelID:   reel.ID,
		Views:    m.Views,
		Likes:    m.Likes,
		Comments: m.Comments,
		Shares:   m.Shares,
	}
	if err := w.store.InsertHistory(ctx, h); err != nil {
		w.failJob(ctx, job.ID, fmt.Sprintf("insert history: %v", err))
		return
	}
	err = w.store.CompleteJob(ctx, job.ID, store.JobMetrics{
		Views:    m.Views,
		Likes:    m.Likes,
		Comments: m.Comments,
		Shares:   m.Shares,
	})
	if err != nil {
		w.logger.Error("complete failed", "job_id", job.ID, "error", err)
		return
	}

	w.logger.Info("job completed",
		"job_id", job.ID, "reel_id", reel.ID, "platform", reel.Platform,
		"views", m.Views, "likes", m.Likes)

	w.notify(ctx, reel, m, prevViews)
}

// notify sends the completion message and, when the view growth over this
// parse cycle exceeds the tenant's threshold, the viral alert. A first
// scrape has no previous snapshot, so its growth counts as zero and never
// triggers the alert.
func (w *Worker) notify(ctx context.Context, reel *store.Reel, m *scrape.Metrics, prevViews int64) {
	if w.cfg.Notifier == nil {
		return
	}

	u, err := w.store.GetUser(ctx, reel.UserID)
	if err != nil || u == nil || !u.TelegramEnabled {
		return
	}

	title := reel.Title
	if title == "" {
		title = reel.URL
	}

	var growth int64
	if prevViews > 0 {
		growth = m.Views - prevViews
	}

	if u.TelegramNotifyComplete && w.cfg.Messages.ParseComplete != nil {
		text := w.cfg.Messages.ParseComplete(title, reel.URL, m.Views, m.Likes, m.Comments, m.Shares, growth)
		w.cfg.Notifier.Send(ctx, u.TelegramBotToken, u.TelegramChatID, text)
	}

	threshold := u.TelegramThresholdViews
	if u.TelegramNotifyViral && threshold > 0 && growth > threshold && w.cfg.Messages.ViralAlert != nil {
		text := w.cfg.Messages.ViralAlert(title, reel.URL, growth)
		w.cfg.Notifier.Send(ctx, u.TelegramBotToken, u.TelegramChatID, text)
	}
}

func (w *Worker) failJob(ctx context.Context, jobID, message string) {
	if err := w.store.FailJob(ctx, jobID, message); err != nil {
		w.logger.Error("fail transition failed", "job_id", jobID, "error", err)
		return
	}
	w.logger.Warn("job failed", "job_id", jobID, "reason", message)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
