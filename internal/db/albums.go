package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AlbumRepository handles album database operations. Album identity is
// (artist name, album name), both normalized.
type AlbumRepository struct {
	pool *pgxpool.Pool
}

// Exists reports whether the album is already stored.
func (r *AlbumRepository) Exists(ctx context.Context, artistNorm, nameNorm string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM albums WHERE artist_name_norm = $1 AND name_norm = $2`,
		artistNorm, nameNorm,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking album existence: %w", err)
	}
	return true, nil
}

// IDByKey resolves an album id by its normalized identity. Returns nil when
// absent.
func (r *AlbumRepository) IDByKey(ctx context.Context, artistNorm, nameNorm string) (*int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM albums WHERE artist_name_norm = $1 AND name_norm = $2`,
		artistNorm, nameNorm,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving album id: %w", err)
	}
	return &id, nil
}

// Insert stores an album, no-op on identity conflict.
func (r *AlbumRepository) Insert(ctx context.Context, album *Album) error {
	query := `
		INSERT INTO albums (
			name, name_norm, mbid, url, release_date,
			artist_id, artist_name, artist_name_norm,
			image_small, image_medium, image_large, image_extralarge,
			listeners, playcount,
			toptags, tracks,
			wiki_published, wiki_summary, wiki_content,
			user_playcount, embedding
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14,
			$15, $16,
			$17, $18, $19,
			$20, $21
		)
		ON CONFLICT (artist_name_norm, name_norm) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		album.Name,
		album.NameNorm,
		album.MBID,
		album.URL,
		album.ReleaseDate,
		album.ArtistID,
		album.ArtistName,
		album.ArtistNameNorm,
		album.ImageSmall,
		album.ImageMedium,
		album.ImageLarge,
		album.ImageXL,
		album.Listeners,
		album.Playcount,
		album.TopTags,
		album.Tracks,
		album.WikiPublished,
		album.WikiSummary,
		album.WikiContent,
		album.UserPlaycount,
		album.Embedding,
	)
	if err != nil {
		return fmt.Errorf("inserting album: %w", err)
	}
	return nil
}
