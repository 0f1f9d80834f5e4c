package tracker

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hazyhaar/reelwatch/scrape"
	"github.com/hazyhaar/reelwatch/tracker/internal/store"
	"github.com/hazyhaar/reelwatch/tracker/internal/tariff"
)

// Service is the tenant-facing operation surface over the store. The
// scheduler and worker loops (see runtime.go) run beside it against the
// same database.
type Service struct {
	store  *store.Store
	plans  tariff.Plans
	logger *slog.Logger
}

// NewService creates a Service over an already-opened database (see dbopen,
// with Schema applied). nil plans use the built-in defaults and a nil
// logger uses slog.Default().
func NewService(db *sql.DB, plans tariff.Plans, logger *slog.Logger) *Service {
	if plans == nil {
		plans = tariff.Defaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store.NewStore(db), plans: plans, logger: logger}
}

func (s *Service) user(ctx context.Context, userID string) (*store.User, tariff.Tariff, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, tariff.Tariff{}, err
	}
	if u == nil {
		return nil, tariff.Tariff{}, ErrUserNotFound
	}
	return u, s.plans.Resolve(u.Tariff), nil
}

// CreateReel registers a new tracked reel for a tenant, enforcing the
// tariff quota and platform validity.
func (s *Service) CreateReel(ctx context.Context, userID, title, platform, url string) (*store.Reel, error) {
	_, plan, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := scrape.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountUserReels(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !plan.AllowsReelCount(count) {
		return nil, ErrReelQuotaExceeded
	}

	r := &store.Reel{
		UserID:   userID,
		Title:    title,
		Platform: string(p),
		URL:      url,
		Enabled:  true,
	}
	if err := s.store.InsertReel(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("reel created", "user_id", userID, "reel_id", r.ID, "platform", r.Platform)
	return r, nil
}

// GetReel returns a tenant's reel or ErrReelNotFound.
func (s *Service) GetReel(ctx context.Context, userID, reelID string) (*store.Reel, error) {
	r, err := s.store.GetUserReel(ctx, userID, reelID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrReelNotFound
	}
	return r, nil
}

// ListReels returns all of a tenant's reels with current metrics.
func (s *Service) ListReels(ctx context.Context, userID string) ([]*store.Reel, error) {
	return s.store.ListUserReels(ctx, userID)
}

// UpdateReel changes a reel's title and enabled flag. Nil fields are left
// untouched, so a partial update cannot clobber the rest.
func (s *Service) UpdateReel(ctx context.Context, userID, reelID string, title *string, enabled *bool) (*store.Reel, error) {
	r, err := s.GetReel(ctx, userID, reelID)
	if err != nil {
		return nil, err
	}
	if title != nil {
		r.Title = *title
	}
	if enabled != nil {
		r.Enabled = *enabled
	}
	if err := s.store.UpdateReel(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReel removes a tenant's reel, cascading to history and jobs.
func (s *Service) DeleteReel(ctx context.Context, userID, reelID string) error {
	r, err := s.GetReel(ctx, userID, reelID)
	if err != nil {
		return err
	}
	return s.store.DeleteReel(ctx, r.ID)
}

// History returns a reel's metric snapshots, newest first.
func (s *Service) History(ctx context.Context, userID, reelID string, limit int) ([]*store.HistoryEntry, error) {
	if _, err := s.GetReel(ctx, userID, reelID); err != nil {
		return nil, err
	}
	return s.store.ReelHistory(ctx, reelID, limit)
}

// EnqueueReel queues one reel for an immediate parse, subject to the
// tenant's cooldown. A reel with a pending or running job dedup-returns
// that job instead of erroring.
func (s *Service) EnqueueReel(ctx context.Context, userID, reelID string) (*store.ParseJob, error) {
	_, plan, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	r, err := s.GetReel(ctx, userID, reelID)
	if err != nil {
		return nil, err
	}

	st, err := s.store.UserQueueStatus(ctx, userID, plan.ParseInterval)
	if err != nil {
		return nil, err
	}
	if !st.CanEnqueueNow {
		return nil, ErrEnqueueTooSoon
	}

	job, _, err := s.store.EnqueueJob(ctx, r.ID, userID, plan.Priority)
	return job, err
}

// EnqueueAllEnabled queues a full parse round over the tenant's enabled
// reels, subject to the cooldown. Reels with jobs already in flight are
// dedup'd. Returns the number of jobs created.
func (s *Service) EnqueueAllEnabled(ctx context.Context, userID string) (int, error) {
	_, plan, err := s.user(ctx, userID)
	if err != nil {
		return 0, err
	}

	st, err := s.store.UserQueueStatus(ctx, userID, plan.ParseInterval)
	if err != nil {
		return 0, err
	}
	if !st.CanEnqueueNow {
		return 0, ErrEnqueueTooSoon
	}

	reels, err := s.store.ListEnabledReels(ctx, userID)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, r := range reels {
		_, ok, err := s.store.EnqueueJob(ctx, r.ID, userID, plan.Priority)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// QueueStatus reports the tenant's queue counters and cooldown state.
func (s *Service) QueueStatus(ctx context.Context, userID string) (*store.QueueStatus, error) {
	_, plan, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.UserQueueStatus(ctx, userID, plan.ParseInterval)
}
