package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ScrobbleRepository handles scrobble database operations.
type ScrobbleRepository struct {
	pool *pgxpool.Pool
}

// Insert stores a single listen, resolving the owning track by normalized
// (artist, track) at insert time. When the track is unknown the scrobble is
// still stored with a NULL track id and its denormalized names. Keyed on
// (track_id, listened_at), no-op on conflict, so repeated deliveries of the
// same event are safe.
func (r *ScrobbleRepository) Insert(ctx context.Context, sc *Scrobble) error {
	trackID, err := (&TrackRepository{pool: r.pool}).IDByKey(ctx,
		Normalize(sc.ArtistName), Normalize(sc.TrackName))
	if err != nil {
		return fmt.Errorf("resolving scrobble track: %w", err)
	}
	sc.TrackID = trackID

	query := `
		INSERT INTO scrobbles (track_id, listened_at, artist_name, track_name, album_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (track_id, listened_at) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		sc.TrackID,
		sc.ListenedAt,
		sc.ArtistName,
		sc.TrackName,
		sc.AlbumName,
	)
	if err != nil {
		return fmt.Errorf("inserting scrobble: %w", err)
	}
	return nil
}

// CountSince returns how many scrobbles are stored with listened_at greater
// than or equal to the given timestamp.
func (r *ScrobbleRepository) CountSince(ctx context.Context, since int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scrobbles WHERE listened_at >= $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scrobbles: %w", err)
	}
	return count, nil
}
