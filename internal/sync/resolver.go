package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bensonchow123/last-analyzer/internal/db"
	"github.com/bensonchow123/last-analyzer/internal/lastfm"
)

// ref is one distinct entity reference extracted from a scrobble batch.
// key is the normalized storage identity; the display names are kept for
// API lookups, which want the original casing.
type ref struct {
	key        string
	artistName string
	name       string // entity display name; equals artistName for artists
	mbid       string
}

// refKeySep joins the artist and entity components of a composite key. It
// cannot occur in a normalized name.
const refKeySep = "\x1f"

// resolver ensures every distinct entity referenced by a batch exists in
// storage, fetching and inserting the ones that do not. One implementation
// serves all three entity kinds; behavior is supplied as functions.
//
// resolve fetches metadata and performs the idempotent insert for a single
// reference. lastfm.ErrNotFound and lastfm.ErrInvalidLookup returns are
// expected per-reference outcomes and only warn; anything else aborts the
// whole batch.
type resolver struct {
	kind        string
	concurrency int
	log         zerolog.Logger

	extract func(scrobbles []lastfm.Scrobble) []ref
	exists  func(ctx context.Context, r ref) (bool, error)
	resolve func(ctx context.Context, r ref) error
}

// run resolves the batch: extract + dedup, filter out already-stored keys,
// then fetch-and-insert the remainder with bounded concurrency. Concurrent
// fetches only queue on the shared API gate; inserts race safely because
// they are no-ops on key conflict.
func (r *resolver) run(ctx context.Context, scrobbles []lastfm.Scrobble) error {
	refs := r.extract(scrobbles)
	r.log.Debug().Int("distinct", len(refs)).Str("kind", r.kind).Msg("extracted entity references")

	var missing []ref
	for _, item := range refs {
		stored, err := r.exists(ctx, item)
		if err != nil {
			return fmt.Errorf("checking %s existence: %w", r.kind, err)
		}
		if !stored {
			missing = append(missing, item)
		}
	}

	if len(missing) == 0 {
		r.log.Debug().Str("kind", r.kind).Msg("no new entities to fetch")
		return nil
	}
	r.log.Info().Int("count", len(missing)).Str("kind", r.kind).Msg("fetching metadata for new entities")

	concurrency := r.concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, item := range missing {
		g.Go(func() error {
			err := r.resolve(gctx, item)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, lastfm.ErrNotFound):
				r.log.Warn().Str("kind", r.kind).Str("name", item.name).Str("artist", item.artistName).
					Msg("no metadata returned; skipping")
				return nil
			case errors.Is(err, lastfm.ErrInvalidLookup):
				r.log.Warn().Str("kind", r.kind).Str("name", item.name).Str("artist", item.artistName).
					Msg("reference missing both mbid and display name; skipping")
				return nil
			default:
				return fmt.Errorf("resolving %s %q: %w", r.kind, item.name, err)
			}
		})
	}
	return g.Wait()
}

// foldRef merges a reference into the dedup map. The first occurrence of a
// key wins, except that a later occurrence carrying an mbid fills one in
// when the representative has none: mbid lookups need no disambiguation and
// yield better metadata.
func foldRef(refs map[string]ref, item ref) {
	existing, ok := refs[item.key]
	if !ok {
		refs[item.key] = item
		return
	}
	if existing.mbid == "" && item.mbid != "" {
		existing.mbid = item.mbid
		refs[item.key] = existing
	}
}

// sortedRefs flattens the dedup map in key order so resolution work is
// deterministic.
func sortedRefs(refs map[string]ref) []ref {
	out := make([]ref, 0, len(refs))
	for _, item := range refs {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// extractArtistRefs collects the distinct artists referenced by the batch.
func extractArtistRefs(scrobbles []lastfm.Scrobble) []ref {
	refs := make(map[string]ref)
	for _, sc := range scrobbles {
		if sc.ArtistName == "" {
			continue
		}
		foldRef(refs, ref{
			key:        db.Normalize(sc.ArtistName),
			artistName: sc.ArtistName,
			name:       sc.ArtistName,
			mbid:       sc.ArtistMBID,
		})
	}
	return sortedRefs(refs)
}

// extractAlbumRefs collects the distinct (artist, album) pairs. Scrobbles
// without an album name are normal and contribute nothing.
func extractAlbumRefs(scrobbles []lastfm.Scrobble) []ref {
	refs := make(map[string]ref)
	for _, sc := range scrobbles {
		if sc.ArtistName == "" || sc.AlbumName == "" {
			continue
		}
		foldRef(refs, ref{
			key:        db.Normalize(sc.ArtistName) + refKeySep + db.Normalize(sc.AlbumName),
			artistName: sc.ArtistName,
			name:       sc.AlbumName,
			mbid:       sc.AlbumMBID,
		})
	}
	return sortedRefs(refs)
}

// extractTrackRefs collects the distinct (artist, track) pairs.
func extractTrackRefs(scrobbles []lastfm.Scrobble) []ref {
	refs := make(map[string]ref)
	for _, sc := range scrobbles {
		if sc.ArtistName == "" || sc.TrackName == "" {
			continue
		}
		foldRef(refs, ref{
			key:        db.Normalize(sc.ArtistName) + refKeySep + db.Normalize(sc.TrackName),
			artistName: sc.ArtistName,
			name:       sc.TrackName,
			mbid:       sc.TrackMBID,
		})
	}
	return sortedRefs(refs)
}
