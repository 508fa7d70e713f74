package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtistRepository handles artist database operations.
type ArtistRepository struct {
	pool *pgxpool.Pool
}

// Exists reports whether an artist with the given normalized name is
// already stored.
func (r *ArtistRepository) Exists(ctx context.Context, nameNorm string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM artists WHERE name_norm = $1`, nameNorm,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking artist existence: %w", err)
	}
	return true, nil
}

// IDByKey resolves an artist id by normalized name. Returns nil (not
// ErrNotFound) when absent: foreign keys to missing parents are stored as
// NULL rather than blocking inserts.
func (r *ArtistRepository) IDByKey(ctx context.Context, nameNorm string) (*int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM artists WHERE name_norm = $1`, nameNorm,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving artist id: %w", err)
	}
	return &id, nil
}

// Insert stores an artist. The insert is a no-op on identity conflict so
// concurrent writers of the same key, or a re-run of the same cycle, never
// error and never overwrite stored data.
func (r *ArtistRepository) Insert(ctx context.Context, artist *Artist) error {
	query := `
		INSERT INTO artists (
			name, name_norm, mbid, url,
			image_small, image_medium, image_large, image_extralarge,
			streamable, listeners, playcount,
			similar_artists, tags,
			bio_published, bio_summary, bio_content,
			user_playcount, embedding
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13,
			$14, $15, $16,
			$17, $18
		)
		ON CONFLICT (name_norm) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		artist.Name,
		artist.NameNorm,
		artist.MBID,
		artist.URL,
		artist.ImageSmall,
		artist.ImageMedium,
		artist.ImageLarge,
		artist.ImageXL,
		artist.Streamable,
		artist.Listeners,
		artist.Playcount,
		artist.SimilarArtists,
		artist.Tags,
		artist.BioPublished,
		artist.BioSummary,
		artist.BioContent,
		artist.UserPlaycount,
		artist.Embedding,
	)
	if err != nil {
		return fmt.Errorf("inserting artist: %w", err)
	}
	return nil
}
