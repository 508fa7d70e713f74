package lastfm

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Scrobble is one completed listening event from user.getRecentTracks,
// flattened out of the Last.fm envelope. MBIDs are frequently empty and
// must never be relied on for identity.
type Scrobble struct {
	ArtistName string
	ArtistMBID string
	TrackName  string
	TrackMBID  string
	AlbumName  string
	AlbumMBID  string
	ListenedAt int64 // unix seconds
}

// Valid reports whether the scrobble carries every field that is mandatory
// for storage: artist name, track name and a non-zero timestamp.
func (s Scrobble) Valid() bool {
	return s.ArtistName != "" && s.TrackName != "" && s.ListenedAt > 0
}

// Tag is a Last.fm genre tag.
type Tag struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Image is one entry of a Last.fm image list, keyed by size
// ("small", "medium", "large", "extralarge").
type Image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

// ImageBySize returns the URL for the given size, or "" if absent.
func ImageBySize(images []Image, size string) string {
	for _, img := range images {
		if img.Size == size {
			return img.URL
		}
	}
	return ""
}

// Wiki holds a bio/wiki block from a getInfo response.
type Wiki struct {
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
}

// SimilarArtist is one entry of an artist's similar-artists list.
type SimilarArtist struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Count tolerates Last.fm returning counters either as JSON numbers or as
// numeric strings, depending on the endpoint. Absent, null and empty-string
// values all decode to a nil value, which is distinct from an explicit zero.
type Count struct {
	v *int64
}

// Value returns the parsed number, or nil when the field was absent or
// unparseable.
func (c Count) Value() *int64 {
	return c.v
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Non-numeric garbage is treated the same as absence.
		return nil
	}
	c.v = &n
	return nil
}

// decodeList decodes a Last.fm list field. The API serializes these as an
// array when there are several entries, as a bare object when there is
// exactly one, and as "", null or absence when there are none.
func decodeList[T any](raw json.RawMessage) []T {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	case '{':
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		return []T{one}
	default:
		return nil
	}
}

// tagList decodes the {"tag": [...]} wrapper, tolerating the API returning
// the whole wrapper as an empty string when an entity has no tags.
type tagList struct {
	Tags []Tag
}

func (l *tagList) UnmarshalJSON(b []byte) error {
	var wrapper struct {
		Tag json.RawMessage `json:"tag"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil
	}
	l.Tags = decodeList[Tag](wrapper.Tag)
	return nil
}

// similarList decodes the {"artist": [...]} wrapper of artist.getInfo's
// similar block.
type similarList struct {
	Artists []SimilarArtist
}

func (l *similarList) UnmarshalJSON(b []byte) error {
	var wrapper struct {
		Artist json.RawMessage `json:"artist"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil
	}
	l.Artists = decodeList[SimilarArtist](wrapper.Artist)
	return nil
}

// streamable decodes the streamable flag, which artist.getInfo returns as a
// bare string and track.getInfo as an object with "#text" and "fulltrack".
type streamable struct {
	Text      string
	FullTrack string
}

func (s *streamable) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &s.Text)
	}
	var obj struct {
		Text      string `json:"#text"`
		FullTrack string `json:"fulltrack"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	s.Text = obj.Text
	s.FullTrack = obj.FullTrack
	return nil
}

// nameRef is the {"#text": ..., "mbid": ...} shape used for the artist and
// album references on a recent-tracks item.
type nameRef struct {
	Text string `json:"#text"`
	MBID string `json:"mbid"`
}

// recentTracksResponse is the JSON envelope for user.getRecentTracks. The
// track list is kept raw because the API emits a bare object for a single
// item; a missing or non-list payload means end-of-stream, not an error.
type recentTracksResponse struct {
	RecentTracks *struct {
		Track json.RawMessage `json:"track"`
		Attr  struct {
			Page       string `json:"page"`
			TotalPages string `json:"totalPages"`
			Total      string `json:"total"`
		} `json:"@attr"`
	} `json:"recenttracks"`
}

// recentTrack is one item of the recent-tracks list. Attr is present only
// on the in-progress "now playing" entry, which is not a completed listen.
type recentTrack struct {
	Name   string  `json:"name"`
	MBID   string  `json:"mbid"`
	Artist nameRef `json:"artist"`
	Album  nameRef `json:"album"`
	Date   *struct {
		UTS string `json:"uts"`
	} `json:"date"`
	Attr *struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

// nowPlaying reports whether the item is an unfinished, in-progress play.
func (t recentTrack) nowPlaying() bool {
	return t.Attr != nil
}

func (t recentTrack) toScrobble() Scrobble {
	var listenedAt int64
	if t.Date != nil {
		listenedAt, _ = strconv.ParseInt(t.Date.UTS, 10, 64)
	}
	return Scrobble{
		ArtistName: t.Artist.Text,
		ArtistMBID: t.Artist.MBID,
		TrackName:  t.Name,
		TrackMBID:  t.MBID,
		AlbumName:  t.Album.Text,
		AlbumMBID:  t.Album.MBID,
		ListenedAt: listenedAt,
	}
}

// ArtistInfo is the "artist" object of an artist.getInfo response.
type ArtistInfo struct {
	Name       string     `json:"name"`
	MBID       string     `json:"mbid"`
	URL        string     `json:"url"`
	Streamable streamable `json:"streamable"`
	Images     []Image    `json:"image"`
	Stats      struct {
		Listeners     Count `json:"listeners"`
		Playcount     Count `json:"playcount"`
		UserPlaycount Count `json:"userplaycount"`
	} `json:"stats"`
	Similar similarList `json:"similar"`
	Tags    tagList     `json:"tags"`
	Bio     Wiki        `json:"bio"`
}

// AlbumTrack is one entry of an album's track listing.
type AlbumTrack struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Duration Count  `json:"duration,omitempty"`
}

// albumTrackList decodes the {"track": [...]} wrapper of album.getInfo's
// tracks block.
type albumTrackList struct {
	Tracks []AlbumTrack
}

func (l *albumTrackList) UnmarshalJSON(b []byte) error {
	var wrapper struct {
		Track json.RawMessage `json:"track"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil
	}
	l.Tracks = decodeList[AlbumTrack](wrapper.Track)
	return nil
}

// AlbumInfo is the "album" object of an album.getInfo response.
type AlbumInfo struct {
	Name          string         `json:"name"`
	Artist        string         `json:"artist"`
	MBID          string         `json:"mbid"`
	URL           string         `json:"url"`
	ReleaseDate   string         `json:"releasedate"`
	Images        []Image        `json:"image"`
	Listeners     Count          `json:"listeners"`
	Playcount     Count          `json:"playcount"`
	UserPlaycount Count          `json:"userplaycount"`
	Tracks        albumTrackList `json:"tracks"`
	Tags          tagList        `json:"tags"`
	Wiki          Wiki           `json:"wiki"`
}

// TrackInfo is the "track" object of a track.getInfo response.
type TrackInfo struct {
	Name       string     `json:"name"`
	MBID       string     `json:"mbid"`
	URL        string     `json:"url"`
	Duration   Count      `json:"duration"`
	Streamable streamable `json:"streamable"`
	Artist     struct {
		Name string `json:"name"`
		MBID string `json:"mbid"`
		URL  string `json:"url"`
	} `json:"artist"`
	Album *struct {
		Artist string  `json:"artist"`
		Title  string  `json:"title"`
		MBID   string  `json:"mbid"`
		URL    string  `json:"url"`
		Images []Image `json:"image"`
		Attr   struct {
			Position Count `json:"position"`
		} `json:"@attr"`
	} `json:"album"`
	TopTags       tagList `json:"toptags"`
	Wiki          Wiki    `json:"wiki"`
	UserPlaycount Count   `json:"userplaycount"`
	UserLoved     Count   `json:"userloved"`
}

type artistInfoResponse struct {
	Artist *ArtistInfo `json:"artist"`
}

type albumInfoResponse struct {
	Album *AlbumInfo `json:"album"`
}

type trackInfoResponse struct {
	Track *TrackInfo `json:"track"`
}

// apiError is the Last.fm error envelope.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
