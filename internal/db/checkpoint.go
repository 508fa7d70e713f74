package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// checkpointKey is the singleton row key for sync progress.
const checkpointKey = "last_sync_time"

// CheckpointRepository owns the durable sync progress marker: the
// listened_at of the latest scrobble known to be ingested.
type CheckpointRepository struct {
	pool *pgxpool.Pool
}

// Read returns the checkpoint timestamp, or nil when no sync has ever
// completed, meaning the entire available history should be fetched.
func (r *CheckpointRepository) Read(ctx context.Context) (*int64, error) {
	var value int64
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM sync_checkpoint WHERE key = $1`, checkpointKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	return &value, nil
}

// Advance records the checkpoint. Called only after every scrobble of the
// cycle has been durably stored, with the maximum observed listened_at.
func (r *CheckpointRepository) Advance(ctx context.Context, timestamp int64) error {
	query := `
		INSERT INTO sync_checkpoint (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, checkpointKey, timestamp)
	if err != nil {
		return fmt.Errorf("advancing checkpoint: %w", err)
	}
	return nil
}
