package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"github.com/bensonchow123/last-analyzer/internal/db"
	"github.com/bensonchow123/last-analyzer/internal/embedding"
	"github.com/bensonchow123/last-analyzer/internal/lastfm"
)

const defaultConcurrency = 4

// HistoryClient is the slice of the Last.fm client the sync service needs.
type HistoryClient interface {
	RecentTracks(ctx context.Context, from, to int64) ([]lastfm.Scrobble, error)
	ArtistInfo(ctx context.Context, q lastfm.InfoQuery) (*lastfm.ArtistInfo, error)
	AlbumInfo(ctx context.Context, q lastfm.InfoQuery) (*lastfm.AlbumInfo, error)
	TrackInfo(ctx context.Context, q lastfm.InfoQuery) (*lastfm.TrackInfo, error)
}

// Storage interfaces, implemented by the db repositories.

type ArtistStore interface {
	Exists(ctx context.Context, nameNorm string) (bool, error)
	IDByKey(ctx context.Context, nameNorm string) (*int64, error)
	Insert(ctx context.Context, artist *db.Artist) error
}

type AlbumStore interface {
	Exists(ctx context.Context, artistNorm, nameNorm string) (bool, error)
	IDByKey(ctx context.Context, artistNorm, nameNorm string) (*int64, error)
	Insert(ctx context.Context, album *db.Album) error
}

type TrackStore interface {
	Exists(ctx context.Context, artistNorm, nameNorm string) (bool, error)
	IDByKey(ctx context.Context, artistNorm, nameNorm string) (*int64, error)
	Insert(ctx context.Context, track *db.Track) error
}

type ScrobbleStore interface {
	Insert(ctx context.Context, sc *db.Scrobble) error
}

type CheckpointStore interface {
	Read(ctx context.Context) (*int64, error)
	Advance(ctx context.Context, timestamp int64) error
}

// Service runs incremental sync cycles: fetch new scrobbles since the
// checkpoint, resolve the entities they reference, store the listens, then
// advance the checkpoint.
type Service struct {
	client      HistoryClient
	artists     ArtistStore
	albums      AlbumStore
	tracks      TrackStore
	scrobbles   ScrobbleStore
	checkpoint  CheckpointStore
	embedder    embedding.Embedder
	log         zerolog.Logger
	concurrency int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds how many metadata fetches run at once. They still
// serialize on the client's rate gate; the bound caps goroutines and
// in-flight inserts.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a sync service over the given database.
func New(client HistoryClient, database *db.DB, embedder embedding.Embedder, log zerolog.Logger, opts ...Option) *Service {
	return newService(client,
		database.Artists(), database.Albums(), database.Tracks(),
		database.Scrobbles(), database.Checkpoint(),
		embedder, log, opts...)
}

func newService(client HistoryClient, artists ArtistStore, albums AlbumStore, tracks TrackStore,
	scrobbles ScrobbleStore, checkpoint CheckpointStore, embedder embedding.Embedder,
	log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		client:      client,
		artists:     artists,
		albums:      albums,
		tracks:      tracks,
		scrobbles:   scrobbles,
		checkpoint:  checkpoint,
		embedder:    embedder,
		log:         log,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle performs one full sync pass. Any error leaves the checkpoint
// untouched, so the next cycle re-fetches the same window and the idempotent
// inserts absorb the replay.
func (s *Service) RunCycle(ctx context.Context) error {
	log := s.log.With().Str("cycle_id", uuid.NewString()).Logger()

	cp, err := s.checkpoint.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	var from int64
	if cp != nil {
		from = *cp + 1
	}
	to := s.now().Unix()
	log.Info().Int64("from", from).Int64("to", to).Msg("starting sync cycle")

	scrobbles, err := s.client.RecentTracks(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetching scrobbles: %w", err)
	}
	if len(scrobbles) == 0 {
		log.Info().Msg("no new scrobbles")
		return nil
	}

	// Malformed events are dropped up front so they neither trigger entity
	// resolution nor advance the checkpoint.
	valid := make([]lastfm.Scrobble, 0, len(scrobbles))
	for _, sc := range scrobbles {
		if !sc.Valid() {
			log.Warn().Str("artist", sc.ArtistName).Str("track", sc.TrackName).
				Int64("listened_at", sc.ListenedAt).Msg("dropping scrobble with missing fields")
			continue
		}
		valid = append(valid, sc)
	}
	if len(valid) == 0 {
		log.Warn().Int("dropped", len(scrobbles)).Msg("no storable scrobbles in batch")
		return nil
	}

	// Artists before albums before tracks, so child rows can link to their
	// parents by the time they are inserted.
	for _, r := range s.resolvers(log) {
		if err := r.run(ctx, valid); err != nil {
			return err
		}
	}

	var newest int64
	for i := range valid {
		sc := db.Scrobble{
			ListenedAt: valid[i].ListenedAt,
			ArtistName: valid[i].ArtistName,
			TrackName:  valid[i].TrackName,
			AlbumName:  optStr(valid[i].AlbumName),
		}
		if err := s.scrobbles.Insert(ctx, &sc); err != nil {
			return fmt.Errorf("storing scrobbles: %w", err)
		}
		if sc.ListenedAt > newest {
			newest = sc.ListenedAt
		}
	}

	if err := s.checkpoint.Advance(ctx, newest); err != nil {
		return fmt.Errorf("advancing checkpoint: %w", err)
	}
	log.Info().Int("scrobbles", len(valid)).Int64("checkpoint", newest).Msg("sync cycle completed")
	return nil
}

func (s *Service) resolvers(log zerolog.Logger) []*resolver {
	return []*resolver{
		{
			kind:        "artist",
			concurrency: s.concurrency,
			log:         log,
			extract:     extractArtistRefs,
			exists: func(ctx context.Context, r ref) (bool, error) {
				return s.artists.Exists(ctx, r.key)
			},
			resolve: s.resolveArtist,
		},
		{
			kind:        "album",
			concurrency: s.concurrency,
			log:         log,
			extract:     extractAlbumRefs,
			exists: func(ctx context.Context, r ref) (bool, error) {
				return s.albums.Exists(ctx, db.Normalize(r.artistName), db.Normalize(r.name))
			},
			resolve: s.resolveAlbum,
		},
		{
			kind:        "track",
			concurrency: s.concurrency,
			log:         log,
			extract:     extractTrackRefs,
			exists: func(ctx context.Context, r ref) (bool, error) {
				return s.tracks.Exists(ctx, db.Normalize(r.artistName), db.Normalize(r.name))
			},
			resolve: s.resolveTrack,
		},
	}
}

func (s *Service) resolveArtist(ctx context.Context, r ref) error {
	info, err := s.client.ArtistInfo(ctx, lastfm.InfoQuery{MBID: r.mbid, Artist: r.name})
	if err != nil {
		return err
	}
	artist := buildArtist(info, r.name)
	artist.Embedding = s.embed(ctx, "artist", artist.Name, artistEmbedText(artist, info))
	return s.artists.Insert(ctx, artist)
}

func (s *Service) resolveAlbum(ctx context.Context, r ref) error {
	info, err := s.client.AlbumInfo(ctx, lastfm.InfoQuery{MBID: r.mbid, Artist: r.artistName, Name: r.name})
	if err != nil {
		return err
	}
	album := buildAlbum(info, r.name, r.artistName, nil)
	artistID, err := s.artists.IDByKey(ctx, album.ArtistNameNorm)
	if err != nil {
		return err
	}
	album.ArtistID = artistID
	album.Embedding = s.embed(ctx, "album", album.Name, albumEmbedText(album, info))
	return s.albums.Insert(ctx, album)
}

func (s *Service) resolveTrack(ctx context.Context, r ref) error {
	info, err := s.client.TrackInfo(ctx, lastfm.InfoQuery{MBID: r.mbid, Artist: r.artistName, Name: r.name})
	if err != nil {
		return err
	}
	track := buildTrack(info, r.name, r.artistName, nil, nil)
	artistID, err := s.artists.IDByKey(ctx, track.ArtistNameNorm)
	if err != nil {
		return err
	}
	track.ArtistID = artistID
	if track.AlbumTitle != nil {
		albumArtist := track.ArtistName
		if track.AlbumArtist != nil && *track.AlbumArtist != "" {
			albumArtist = *track.AlbumArtist
		}
		albumID, err := s.albums.IDByKey(ctx, db.Normalize(albumArtist), db.Normalize(*track.AlbumTitle))
		if err != nil {
			return err
		}
		track.AlbumID = albumID
	}
	track.Embedding = s.embed(ctx, "track", track.Name, trackEmbedText(track, info))
	return s.tracks.Insert(ctx, track)
}

// embed computes the entity embedding. Failures are not fatal: the row is
// stored without a vector and the error is logged, so an embedding outage
// never stalls ingestion.
func (s *Service) embed(ctx context.Context, kind, name, text string) *pgvector.Vector {
	values, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Str("name", name).Msg("embedding failed; storing without vector")
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	vec := pgvector.NewVector(values)
	return &vec
}
