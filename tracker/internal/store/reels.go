package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/reelwatch/idgen"
)

const reelColumns = `id, user_id, title, platform, url, enabled,
	views, likes, comments, shares, last_parsed_at, created_at`

// InsertReel adds a tracked reel. The (user_id, url) pair is unique; a
// duplicate insert returns ErrDuplicateReel.
func (s *Store) InsertReel(ctx context.Context, r *Reel) error {
	if r.ID == "" {
		r.ID = idgen.New()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO reels (id, user_id, title, platform, url, enabled,
		views, likes, comments, shares, last_parsed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, r.Platform, r.URL, r.Enabled,
		r.Views, r.Likes, r.Comments, r.Shares, r.LastParsedAt, r.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateReel
	}
	return err
}

// GetReel retrieves a reel by ID. Returns nil, nil when not found.
func (s *Store) GetReel(ctx context.Context, id string) (*Reel, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+reelColumns+` FROM reels WHERE id = ?`, id)
	return scanReel(row)
}

// GetUserReel retrieves a reel scoped to one tenant. Returns nil, nil when
// the reel does not exist or belongs to another tenant.
func (s *Store) GetUserReel(ctx context.Context, userID, reelID string) (*Reel, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+reelColumns+` FROM reels WHERE id = ? AND user_id = ?`, reelID, userID)
	return scanReel(row)
}

// ListUserReels returns all of a tenant's reels, newest first.
func (s *Store) ListUserReels(ctx context.Context, userID string) ([]*Reel, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+reelColumns+` FROM reels
		WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReels(rows)
}

// ListEnabledReels returns a tenant's enabled reels, oldest first so the
// scheduler enqueues them in tracking order.
func (s *Store) ListEnabledReels(ctx context.Context, userID string) ([]*Reel, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+reelColumns+` FROM reels
		WHERE user_id = ? AND enabled = 1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReels(rows)
}

// CountUserReels returns how many reels a tenant tracks, for quota checks.
func (s *Store) CountUserReels(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reels WHERE user_id = ?`, userID).Scan(&count)
	return count, err
}

// UpdateReel updates a reel's mutable fields (title, enabled).
func (s *Store) UpdateReel(ctx context.Context, r *Reel) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE reels SET title=?, enabled=? WHERE id=?`,
		r.Title, r.Enabled, r.ID)
	return err
}

// UpdateReelMetrics writes fresh metrics onto the reel row and stamps
// last_parsed_at.
func (s *Store) UpdateReelMetrics(ctx context.Context, reelID string, views, likes, comments, shares int64) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE reels SET views=?, likes=?, comments=?, shares=?, last_parsed_at=?
		WHERE id=?`,
		views, likes, comments, shares, now, reelID)
	return err
}

// DeleteReel removes a reel (cascades to history and jobs).
func (s *Store) DeleteReel(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM reels WHERE id = ?`, id)
	return err
}

func collectReels(rows *sql.Rows) ([]*Reel, error) {
	var reels []*Reel
	for rows.Next() {
		r, err := scanReelRows(rows)
		if err != nil {
			return nil, err
		}
		reels = append(reels, r)
	}
	return reels, rows.Err()
}

func scanReel(row *sql.Row) (*Reel, error) {
	var r Reel
	var enabled int
	err := row.Scan(
		&r.ID, &r.UserID, &r.Title, &r.Platform, &r.URL, &enabled,
		&r.Views, &r.Likes, &r.Comments, &r.Shares, &r.LastParsedAt, &r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan reel: %w", err)
	}
	r.Enabled = enabled != 0
	return &r, nil
}

func scanReelRows(rows *sql.Rows) (*Reel, error) {
	var r Reel
	var enabled int
	err := rows.Scan(
		&r.ID, &r.UserID, &r.Title, &r.Platform, &r.URL, &enabled,
		&r.Views, &r.Likes, &r.Comments, &r.Shares, &r.LastParsedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan reel: %w", err)
	}
	r.Enabled = enabled != 0
	return &r, nil
}
