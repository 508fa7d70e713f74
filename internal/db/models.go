package db

import (
	"strings"

	"github.com/pgvector/pgvector-go"
)

// Normalize computes the storage identity key for a display name:
// case-folded and trimmed. Entity uniqueness and deduplication are keyed on
// normalized names (composed with the artist's key for albums and tracks),
// never on mbid.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Artist is a row of the artists table.
type Artist struct {
	ID             int64
	Name           string
	NameNorm       string
	MBID           *string
	URL            *string
	ImageSmall     *string
	ImageMedium    *string
	ImageLarge     *string
	ImageXL        *string
	Streamable     *string
	Listeners      *int64
	Playcount      *int64
	SimilarArtists []byte // JSONB
	Tags           []byte // JSONB
	BioPublished   *string
	BioSummary     *string
	BioContent     *string
	UserPlaycount  *int64
	Embedding      *pgvector.Vector // nullable
}

// Album is a row of the albums table.
type Album struct {
	ID             int64
	Name           string
	NameNorm       string
	MBID           *string
	URL            *string
	ReleaseDate    *string
	ArtistID       *int64 // nullable: parent may have failed to resolve
	ArtistName     string
	ArtistNameNorm string
	ImageSmall     *string
	ImageMedium    *string
	ImageLarge     *string
	ImageXL        *string
	Listeners      *int64
	Playcount      *int64
	TopTags        []byte // JSONB
	Tracks         []byte // JSONB
	WikiPublished  *string
	WikiSummary    *string
	WikiContent    *string
	UserPlaycount  *int64
	Embedding      *pgvector.Vector
}

// Track is a row of the tracks table.
type Track struct {
	ID                  int64
	Name                string
	NameNorm            string
	MBID                *string
	URL                 *string
	Duration            *int64
	Streamable          *string
	StreamableFulltrack *string
	ArtistID            *int64
	ArtistName          string
	ArtistNameNorm      string
	ArtistMBID          *string
	ArtistURL           *string
	AlbumID             *int64
	AlbumTitle          *string
	AlbumArtist         *string
	AlbumMBID           *string
	AlbumURL            *string
	AlbumPosition       *int64
	AlbumImageSmall     *string
	AlbumImageMedium    *string
	AlbumImageLarge     *string
	AlbumImageXL        *string
	TopTags             []byte // JSONB
	WikiPublished       *string
	WikiSummary         *string
	WikiContent         *string
	UserLoved           *bool
	UserPlaycount       *int64
	Embedding           *pgvector.Vector
}

// Scrobble is a row of the scrobbles table: a single listen, linked to its
// track when resolution succeeded, with denormalized names for display.
type Scrobble struct {
	ID         int64
	TrackID    *int64 // nullable: resolution may have failed
	ListenedAt int64
	ArtistName string
	TrackName  string
	AlbumName  *string
}
