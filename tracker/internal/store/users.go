package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/reelwatch/idgen"
)

// InsertUser adds a new tenant. Missing ID and CreatedAt are filled in.
func (s *Store) InsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = idgen.New()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().UnixMilli()
	}
	if u.Tariff == "" {
		u.Tariff = "free"
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, tariff, is_active,
		telegram_enabled, telegram_bot_token, telegram_chat_id,
		telegram_notify_complete, telegram_notify_viral, telegram_threshold_views,
		created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Tariff, u.IsActive,
		u.TelegramEnabled, u.TelegramBotToken, u.TelegramChatID,
		u.TelegramNotifyComplete, u.TelegramNotifyViral, u.TelegramThresholdViews,
		u.CreatedAt,
	)
	return err
}

// GetUser retrieves a tenant by ID. Returns nil, nil when not found.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, email, tariff, is_active,
		telegram_enabled, telegram_bot_token, telegram_chat_id,
		telegram_notify_complete, telegram_notify_viral, telegram_threshold_views,
		created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UpdateUserTariff changes a tenant's tariff class.
func (s *Store) UpdateUserTariff(ctx context.Context, id, tariff string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET tariff = ? WHERE id = ?`, tariff, id)
	return err
}

// UpdateUserTelegram replaces a tenant's notification settings.
func (s *Store) UpdateUserTelegram(ctx context.Context, u *User) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET telegram_enabled=?, telegram_bot_token=?, telegram_chat_id=?,
		telegram_notify_complete=?, telegram_notify_viral=?, telegram_threshold_views=?
		WHERE id=?`,
		u.TelegramEnabled, u.TelegramBotToken, u.TelegramChatID,
		u.TelegramNotifyComplete, u.TelegramNotifyViral, u.TelegramThresholdViews,
		u.ID,
	)
	return err
}

// ActiveUsers returns active tenants together with their enabled-reel counts.
// Tenants with zero enabled reels are excluded: the scheduler has nothing to
// enqueue for them.
func (s *Store) ActiveUsers(ctx context.Context) ([]*TenantReels, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT u.id, u.email, u.tariff, u.is_active,
		u.telegram_enabled, u.telegram_bot_token, u.telegram_chat_id,
		u.telegram_notify_complete, u.telegram_notify_viral, u.telegram_threshold_views,
		u.created_at,
		COUNT(r.id) AS enabled_reels
		FROM users u
		JOIN reels r ON r.user_id = u.id AND r.enabled = 1
		WHERE u.is_active = 1
		GROUP BY u.id
		ORDER BY u.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*TenantReels
	for rows.Next() {
		var u User
		var isActive, tgEnabled, tgComplete, tgViral, enabledReels int
		err := rows.Scan(
			&u.ID, &u.Email, &u.Tariff, &isActive,
			&tgEnabled, &u.TelegramBotToken, &u.TelegramChatID,
			&tgComplete, &tgViral, &u.TelegramThresholdViews,
			&u.CreatedAt, &enabledReels,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		u.IsActive = isActive != 0
		u.TelegramEnabled = tgEnabled != 0
		u.TelegramNotifyComplete = tgComplete != 0
		u.TelegramNotifyViral = tgViral != 0
		tenants = append(tenants, &TenantReels{User: &u, EnabledReels: enabledReels})
	}
	return tenants, rows.Err()
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var isActive, tgEnabled, tgComplete, tgViral int
	err := row.Scan(
		&u.ID, &u.Email, &u.Tariff, &isActive,
		&tgEnabled, &u.TelegramBotToken, &u.TelegramChatID,
		&tgComplete, &tgViral, &u.TelegramThresholdViews,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.IsActive = isActive != 0
	u.TelegramEnabled = tgEnabled != 0
	u.TelegramNotifyComplete = tgComplete != 0
	u.TelegramNotifyViral = tgViral != 0
	return &u, nil
}
