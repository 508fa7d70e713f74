package sync

import (
	"encoding/json"

	"github.com/bensonchow123/last-analyzer/internal/db"
	"github.com/bensonchow123/last-analyzer/internal/embedding"
	"github.com/bensonchow123/last-analyzer/internal/lastfm"
)

// Mapping from Last.fm getInfo payloads to storage rows. Display names fall
// back to the reference that triggered the fetch when the API omits them, so
// a row is always keyed and never stored with an empty identity.

func buildArtist(info *lastfm.ArtistInfo, fallbackName string) *db.Artist {
	name := info.Name
	if name == "" {
		name = fallbackName
	}
	return &db.Artist{
		Name:           name,
		NameNorm:       db.Normalize(name),
		MBID:           optStr(info.MBID),
		URL:            optStr(info.URL),
		ImageSmall:     optStr(lastfm.ImageBySize(info.Images, "small")),
		ImageMedium:    optStr(lastfm.ImageBySize(info.Images, "medium")),
		ImageLarge:     optStr(lastfm.ImageBySize(info.Images, "large")),
		ImageXL:        optStr(lastfm.ImageBySize(info.Images, "extralarge")),
		Streamable:     optStr(info.Streamable.Text),
		Listeners:      info.Stats.Listeners.Value(),
		Playcount:      info.Stats.Playcount.Value(),
		SimilarArtists: marshalJSON(info.Similar.Artists),
		Tags:           marshalJSON(info.Tags.Tags),
		BioPublished:   optStr(info.Bio.Published),
		BioSummary:     optStr(info.Bio.Summary),
		BioContent:     optStr(info.Bio.Content),
		UserPlaycount:  info.Stats.UserPlaycount.Value(),
	}
}

func artistEmbedText(artist *db.Artist, info *lastfm.ArtistInfo) string {
	return embedding.ArtistText(
		artist.Name,
		tagNames(info.Tags.Tags),
		similarNames(info.Similar.Artists),
		info.Bio.Content,
		info.Bio.Summary,
	)
}

func buildAlbum(info *lastfm.AlbumInfo, fallbackName, fallbackArtist string, artistID *int64) *db.Album {
	name := info.Name
	if name == "" {
		name = fallbackName
	}
	artistName := info.Artist
	if artistName == "" {
		artistName = fallbackArtist
	}
	return &db.Album{
		Name:           name,
		NameNorm:       db.Normalize(name),
		MBID:           optStr(info.MBID),
		URL:            optStr(info.URL),
		ReleaseDate:    optStr(info.ReleaseDate),
		ArtistID:       artistID,
		ArtistName:     artistName,
		ArtistNameNorm: db.Normalize(artistName),
		ImageSmall:     optStr(lastfm.ImageBySize(info.Images, "small")),
		ImageMedium:    optStr(lastfm.ImageBySize(info.Images, "medium")),
		ImageLarge:     optStr(lastfm.ImageBySize(info.Images, "large")),
		ImageXL:        optStr(lastfm.ImageBySize(info.Images, "extralarge")),
		Listeners:      info.Listeners.Value(),
		Playcount:      info.Playcount.Value(),
		TopTags:        marshalJSON(info.Tags.Tags),
		Tracks:         marshalJSON(info.Tracks.Tracks),
		WikiPublished:  optStr(info.Wiki.Published),
		WikiSummary:    optStr(info.Wiki.Summary),
		WikiContent:    optStr(info.Wiki.Content),
		UserPlaycount:  info.UserPlaycount.Value(),
	}
}

func albumEmbedText(album *db.Album, info *lastfm.AlbumInfo) string {
	return embedding.AlbumText(
		album.Name,
		album.ArtistName,
		tagNames(info.Tags.Tags),
		albumTrackNames(info.Tracks.Tracks),
		info.Wiki.Content,
		info.Wiki.Summary,
	)
}

func buildTrack(info *lastfm.TrackInfo, fallbackName, fallbackArtist string, artistID, albumID *int64) *db.Track {
	name := info.Name
	if name == "" {
		name = fallbackName
	}
	artistName := info.Artist.Name
	if artistName == "" {
		artistName = fallbackArtist
	}
	track := &db.Track{
		Name:                name,
		NameNorm:            db.Normalize(name),
		MBID:                optStr(info.MBID),
		URL:                 optStr(info.URL),
		Duration:            info.Duration.Value(),
		Streamable:          optStr(info.Streamable.Text),
		StreamableFulltrack: optStr(info.Streamable.FullTrack),
		ArtistID:            artistID,
		ArtistName:          artistName,
		ArtistNameNorm:      db.Normalize(artistName),
		ArtistMBID:          optStr(info.Artist.MBID),
		ArtistURL:           optStr(info.Artist.URL),
		TopTags:             marshalJSON(info.TopTags.Tags),
		WikiPublished:       optStr(info.Wiki.Published),
		WikiSummary:         optStr(info.Wiki.Summary),
		WikiContent:         optStr(info.Wiki.Content),
		UserPlaycount:       info.UserPlaycount.Value(),
	}
	if loved := info.UserLoved.Value(); loved != nil {
		v := *loved != 0
		track.UserLoved = &v
	}
	if album := info.Album; album != nil {
		track.AlbumID = albumID
		track.AlbumTitle = optStr(album.Title)
		track.AlbumArtist = optStr(album.Artist)
		track.AlbumMBID = optStr(album.MBID)
		track.AlbumURL = optStr(album.URL)
		track.AlbumPosition = album.Attr.Position.Value()
		track.AlbumImageSmall = optStr(lastfm.ImageBySize(album.Images, "small"))
		track.AlbumImageMedium = optStr(lastfm.ImageBySize(album.Images, "medium"))
		track.AlbumImageLarge = optStr(lastfm.ImageBySize(album.Images, "large"))
		track.AlbumImageXL = optStr(lastfm.ImageBySize(album.Images, "extralarge"))
	}
	return track
}

func trackEmbedText(track *db.Track, info *lastfm.TrackInfo) string {
	var album string
	if track.AlbumTitle != nil {
		album = *track.AlbumTitle
	}
	return embedding.TrackText(
		track.Name,
		track.ArtistName,
		album,
		tagNames(info.TopTags.Tags),
		info.Wiki.Content,
		info.Wiki.Summary,
	)
}

func tagNames(tags []lastfm.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}
	return names
}

func similarNames(artists []lastfm.SimilarArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

func albumTrackNames(tracks []lastfm.AlbumTrack) []string {
	names := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}
	return names
}

// optStr maps "" to NULL.
func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// marshalJSON renders a list for a JSONB column, NULL when empty.
func marshalJSON[T any](list []T) []byte {
	if len(list) == 0 {
		return nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	return b
}
