package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres when TEST_DATABASE_URL is set.
func TestLastOrganizerRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	database, err := New(ctx, url)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.RunMigrations(ctx))

	_, err = database.pool.Exec(ctx, "DELETE FROM bot_state WHERE key = $1", LastOrganizerKey)
	require.NoError(t, err)

	_, ok, err := database.LastOrganizer(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, database.SetLastOrganizer(ctx, "111"))
	require.NoError(t, database.SetLastOrganizer(ctx, "222"))
	id, ok, err := database.LastOrganizer(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "222", id)
}
