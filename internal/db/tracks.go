package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TrackRepository handles track database operations. Track identity is
// (artist name, track name), both normalized.
type TrackRepository struct {
	pool *pgxpool.Pool
}

// Exists reports whether the track is already stored.
func (r *TrackRepository) Exists(ctx context.Context, artistNorm, nameNorm string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx,
		`SELECT 1 FROM tracks WHERE artist_name_norm = $1 AND name_norm = $2`,
		artistNorm, nameNorm,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking track existence: %w", err)
	}
	return true, nil
}

// IDByKey resolves a track id by its normalized identity. Returns nil when
// absent.
func (r *TrackRepository) IDByKey(ctx context.Context, artistNorm, nameNorm string) (*int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM tracks WHERE artist_name_norm = $1 AND name_norm = $2`,
		artistNorm, nameNorm,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving track id: %w", err)
	}
	return &id, nil
}

// Insert stores a track, no-op on identity conflict.
func (r *TrackRepository) Insert(ctx context.Context, track *Track) error {
	query := `
		INSERT INTO tracks (
			name, name_norm, mbid, url, duration,
			streamable, streamable_fulltrack,
			artist_id, artist_name, artist_name_norm, artist_mbid, artist_url,
			album_id, album_title, album_artist, album_mbid, album_url, album_position,
			album_image_small, album_image_medium, album_image_large, album_image_extralarge,
			toptags,
			wiki_published, wiki_summary, wiki_content,
			user_loved, user_playcount, embedding
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22,
			$23,
			$24, $25, $26,
			$27, $28, $29
		)
		ON CONFLICT (artist_name_norm, name_norm) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		track.Name,
		track.NameNorm,
		track.MBID,
		track.URL,
		track.Duration,
		track.Streamable,
		track.StreamableFulltrack,
		track.ArtistID,
		track.ArtistName,
		track.ArtistNameNorm,
		track.ArtistMBID,
		track.ArtistURL,
		track.AlbumID,
		track.AlbumTitle,
		track.AlbumArtist,
		track.AlbumMBID,
		track.AlbumURL,
		track.AlbumPosition,
		track.AlbumImageSmall,
		track.AlbumImageMedium,
		track.AlbumImageLarge,
		track.AlbumImageXL,
		track.TopTags,
		track.WikiPublished,
		track.WikiSummary,
		track.WikiContent,
		track.UserLoved,
		track.UserPlaycount,
		track.Embedding,
	)
	if err != nil {
		return fmt.Errorf("inserting track: %w", err)
	}
	return nil
}
