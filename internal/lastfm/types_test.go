package lastfm

import (
	"encoding/json"
	"testing"
)

func TestCountUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want *int64
	}{
		{name: "number", json: `{"n": 42}`, want: int64Ptr(42)},
		{name: "numeric string", json: `{"n": "1213241"}`, want: int64Ptr(1213241)},
		{name: "empty string", json: `{"n": ""}`, want: nil},
		{name: "null", json: `{"n": null}`, want: nil},
		{name: "absent", json: `{}`, want: nil},
		{name: "garbage", json: `{"n": "FIXME"}`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				N Count `json:"n"`
			}
			if err := json.Unmarshal([]byte(tt.json), &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			got := out.N.Value()
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Value() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Value() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "array", raw: `[{"name":"rock"},{"name":"pop"}]`, want: 2},
		{name: "single object", raw: `{"name":"rock"}`, want: 1},
		{name: "empty string", raw: `""`, want: 0},
		{name: "null", raw: `null`, want: 0},
		{name: "absent", raw: ``, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeList[Tag](json.RawMessage(tt.raw))
			if len(got) != tt.want {
				t.Errorf("decodeList() returned %d items, want %d", len(got), tt.want)
			}
		})
	}
}

func TestTagList_EmptyStringWrapper(t *testing.T) {
	// Entities with no tags come back as "tags": "" rather than an object.
	var info ArtistInfo
	if err := json.Unmarshal([]byte(`{"name":"Cher","tags":""}`), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(info.Tags.Tags) != 0 {
		t.Errorf("Tags = %v, want empty", info.Tags.Tags)
	}
}

func TestStreamableShapes(t *testing.T) {
	var artist ArtistInfo
	if err := json.Unmarshal([]byte(`{"name":"Cher","streamable":"0"}`), &artist); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if artist.Streamable.Text != "0" {
		t.Errorf("artist Streamable.Text = %q, want %q", artist.Streamable.Text, "0")
	}

	var track TrackInfo
	raw := `{"name":"Believe","streamable":{"#text":"1","fulltrack":"0"}}`
	if err := json.Unmarshal([]byte(raw), &track); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if track.Streamable.Text != "1" || track.Streamable.FullTrack != "0" {
		t.Errorf("track streamable = %+v, want {1 0}", track.Streamable)
	}
}

func TestRecentTrackToScrobble(t *testing.T) {
	raw := `{
		"name": "Paranoid Android",
		"mbid": "track-mbid",
		"artist": {"#text": "Radiohead", "mbid": "artist-mbid"},
		"album": {"#text": "OK Computer", "mbid": ""},
		"date": {"uts": "1700000000"}
	}`
	var item recentTrack
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	got := item.toScrobble()
	want := Scrobble{
		ArtistName: "Radiohead",
		ArtistMBID: "artist-mbid",
		TrackName:  "Paranoid Android",
		TrackMBID:  "track-mbid",
		AlbumName:  "OK Computer",
		ListenedAt: 1700000000,
	}
	if got != want {
		t.Errorf("toScrobble() = %+v, want %+v", got, want)
	}
	if !got.Valid() {
		t.Error("Valid() = false for complete scrobble")
	}
}

func TestScrobbleValid(t *testing.T) {
	tests := []struct {
		name     string
		scrobble Scrobble
		want     bool
	}{
		{name: "complete", scrobble: Scrobble{ArtistName: "a", TrackName: "t", ListenedAt: 1}, want: true},
		{name: "missing artist", scrobble: Scrobble{TrackName: "t", ListenedAt: 1}, want: false},
		{name: "missing track", scrobble: Scrobble{ArtistName: "a", ListenedAt: 1}, want: false},
		{name: "zero timestamp", scrobble: Scrobble{ArtistName: "a", TrackName: "t"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scrobble.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageBySize(t *testing.T) {
	images := []Image{
		{Size: "small", URL: "http://img/s.png"},
		{Size: "large", URL: "http://img/l.png"},
		{Size: "extralarge", URL: ""},
	}
	if got := ImageBySize(images, "large"); got != "http://img/l.png" {
		t.Errorf("ImageBySize(large) = %q", got)
	}
	if got := ImageBySize(images, "medium"); got != "" {
		t.Errorf("ImageBySize(medium) = %q, want empty", got)
	}
}

func int64Ptr(n int64) *int64 {
	return &n
}
