package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/reelwatch/idgen"
)

// InsertHistory appends one metrics snapshot for a reel.
func (s *Store) InsertHistory(ctx context.Context, h *HistoryEntry) error {
	if h.ID == "" {
		h.ID = idgen.New()
	}
	if h.ParsedAt == 0 {
		h.ParsedAt = time.Now().UnixMilli()
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO reel_history (id, reel_id, views, likes, comments, shares, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.ReelID, h.Views, h.Likes, h.Comments, h.Shares, h.ParsedAt,
	)
	return err
}

// ReelHistory returns snapshots for a reel, newest first, capped at limit.
// limit <= 0 means no cap.
func (s *Store) ReelHistory(ctx context.Context, reelID string, limit int) ([]*HistoryEntry, error) {
	q := `SELECT id, reel_id, views, likes, comments, shares, parsed_at
		FROM reel_history WHERE reel_id = ? ORDER BY parsed_at DESC`
	args := []any{reelID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		err := rows.Scan(&h.ID, &h.ReelID, &h.Views, &h.Likes, &h.Comments, &h.Shares, &h.ParsedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

// PreviousViews returns the views value from a reel's latest snapshot, or 0
// when no history exists. The worker compares it against fresh metrics to
// decide whether the viral threshold was crossed on this scrape.
func (s *Store) PreviousViews(ctx context.Context, reelID string) (int64, error) {
	var views int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT views FROM reel_history WHERE reel_id = ?
		ORDER BY parsed_at DESC LIMIT 1`, reelID).Scan(&views)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return views, nil
}
