package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

const lastOrganizerKey = "last_organizer_id"

type StateRepo struct {
	db *sql.DB
}

func NewStateRepo(dsn string) (*StateRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if err := migrateState(db); err != nil {
		db.Close()
		return nil, err
	}
	return &StateRepo{db: db}, nil
}

func migrateState(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS bot_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`)
	return err
}

func (r *StateRepo) Close() error { return r.db.Close() }

func (r *StateRepo) LastOrganizer(ctx context.Context) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM bot_state WHERE key = ?`, lastOrganizerKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *StateRepo) SetLastOrganizer(ctx context.Context, userID string) error {
	// upsert by primary key
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bot_state(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastOrganizerKey, userID, time.Now())
	return err
}
