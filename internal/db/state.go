package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// LastOrganizerKey is the single slot remembered across sessions.
const LastOrganizerKey = "last_organizer_id"

func (db *DB) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.pool.QueryRow(ctx,
		"SELECT value FROM bot_state WHERE key = $1",
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (db *DB) SetState(ctx context.Context, key, value string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO bot_state (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}

func (db *DB) LastOrganizer(ctx context.Context) (string, bool, error) {
	return db.GetState(ctx, LastOrganizerKey)
}

func (db *DB) SetLastOrganizer(ctx context.Context, userID string) error {
	return db.SetState(ctx, LastOrganizerKey, userID)
}
