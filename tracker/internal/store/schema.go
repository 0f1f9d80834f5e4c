package store

import "database/sql"

// Schema is the complete tracker schema.
const Schema = `
-- Tenants. Auth credentials live with the external auth service; this
-- table carries tariff class and notification settings only.
CREATE TABLE IF NOT EXISTS users (
    id                       TEXT PRIMARY KEY,
    email                    TEXT NOT NULL UNIQUE,
    tariff                   TEXT NOT NULL DEFAULT 'free',
    is_active                INTEGER NOT NULL DEFAULT 1,
    telegram_enabled         INTEGER NOT NULL DEFAULT 0,
    telegram_bot_token       TEXT NOT NULL DEFAULT '',
    telegram_chat_id         TEXT NOT NULL DEFAULT '',
    telegram_notify_complete INTEGER NOT NULL DEFAULT 1,
    telegram_notify_viral    INTEGER NOT NULL DEFAULT 1,
    telegram_threshold_views INTEGER NOT NULL DEFAULT 10000,
    created_at               INTEGER NOT NULL
);

-- Tracked reels. One URL per tenant; current metrics are denormalised
-- here for fast dashboard reads, history is the source of truth.
CREATE TABLE IF NOT EXISTS reels (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title          TEXT NOT NULL,
    platform       TEXT NOT NULL,
    url            TEXT NOT NULL,
    enabled        INTEGER NOT NULL DEFAULT 1,
    views          INTEGER NOT NULL DEFAULT 0,
    likes          INTEGER NOT NULL DEFAULT 0,
    comments       INTEGER NOT NULL DEFAULT 0,
    shares         INTEGER NOT NULL DEFAULT 0,
    last_parsed_at INTEGER,
    created_at     INTEGER NOT NULL,
    UNIQUE(user_id, url)
);
CREATE INDEX IF NOT EXISTS idx_reels_user ON reels(user_id);

-- Append-only metric snapshots, one row per completed scrape.
CREATE TABLE IF NOT EXISTS reel_history (
    id        TEXT PRIMARY KEY,
    reel_id   TEXT NOT NULL REFERENCES reels(id) ON DELETE CASCADE,
    views     INTEGER NOT NULL DEFAULT 0,
    likes     INTEGER NOT NULL DEFAULT 0,
    comments  INTEGER NOT NULL DEFAULT 0,
    shares    INTEGER NOT NULL DEFAULT 0,
    parsed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reel_history_reel ON reel_history(reel_id, parsed_at);

-- Parse-job queue. At most one non-terminal job per reel (enforced at
-- enqueue); PENDING -> RUNNING only through the atomic claim.
CREATE TABLE IF NOT EXISTS parse_jobs (
    id              TEXT PRIMARY KEY,
    reel_id         TEXT NOT NULL REFERENCES reels(id) ON DELETE CASCADE,
    user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status          TEXT NOT NULL DEFAULT 'pending',
    priority        INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    started_at      INTEGER,
    completed_at    INTEGER,
    error_message   TEXT,
    result_views    INTEGER,
    result_likes    INTEGER,
    result_comments INTEGER,
    result_shares   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_parse_jobs_status ON parse_jobs(status, priority);
CREATE INDEX IF NOT EXISTS idx_parse_jobs_reel ON parse_jobs(reel_id);
CREATE INDEX IF NOT EXISTS idx_parse_jobs_user ON parse_jobs(user_id, status);
`

// ApplySchema creates all tables and indexes. Idempotent.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
