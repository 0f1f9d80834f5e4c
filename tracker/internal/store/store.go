// Package store is the data access layer for the tracker: tenants (users),
// tracked reels, metric history, and the parse-job queue.
//
// All timestamps are Unix milliseconds. Nullable timestamps are *int64.
// The store receives an already-opened *sql.DB (see dbopen) and issues no
// DDL outside ApplySchema.
package store

import "database/sql"

// Store wraps the tracker database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
