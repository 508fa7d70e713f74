package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// newTestClient builds a client pointed at the fake server with the rate
// gate disabled.
func newTestClient(server *httptest.Server) *Client {
	return &Client{
		apiKey:     "test-api-key",
		user:       "testuser",
		baseURL:    server.URL + "/",
		pageSize:   200,
		httpClient: server.Client(),
		gate:       newGate(-1),
		log:        zerolog.Nop(),
	}
}

func recentTracksPage(totalPages int, tracks ...string) string {
	return fmt.Sprintf(
		`{"recenttracks": {"track": [%s], "@attr": {"totalPages": "%d"}}}`,
		strings.Join(tracks, ","), totalPages,
	)
}

func trackItem(artist, name string, uts int64) string {
	return fmt.Sprintf(
		`{"name": %q, "artist": {"#text": %q}, "album": {"#text": "An Album"}, "date": {"uts": "%d"}}`,
		name, artist, uts,
	)
}

func TestRecentTracks_PaginationTermination(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, recentTracksPage(3, trackItem("Artist "+page, "Track "+page, 1000)))
	}))
	defer server.Close()

	scrobbles, err := newTestClient(server).RecentTracks(context.Background(), 0, 2000)
	if err != nil {
		t.Fatalf("RecentTracks() error = %v", err)
	}
	if len(scrobbles) != 3 {
		t.Errorf("RecentTracks() returned %d scrobbles, want 3", len(scrobbles))
	}
	// A feed reporting totalPages=3 with non-empty pages issues exactly 3 calls.
	if count := requestCount.Load(); count != 3 {
		t.Errorf("made %d requests, want 3", count)
	}
}

func TestRecentTracks_EmptyPageEndsStream(t *testing.T) {
	var requestCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, recentTracksPage(5, trackItem("Artist", "Track", 1000)))
			return
		}
		// Stale pagination metadata: page 2 is already empty.
		fmt.Fprint(w, recentTracksPage(5))
	}))
	defer server.Close()

	scrobbles, err := newTestClient(server).RecentTracks(context.Background(), 0, 2000)
	if err != nil {
		t.Fatalf("RecentTracks() error = %v", err)
	}
	if len(scrobbles) != 1 {
		t.Errorf("RecentTracks() returned %d scrobbles, want 1", len(scrobbles))
	}
	if count := requestCount.Load(); count != 2 {
		t.Errorf("made %d requests, want 2", count)
	}
}

func TestRecentTracks_NonListTrackEndsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"recenttracks": {"track": {"name": "lonely object"}, "@attr": {"totalPages": "1"}}}`)
	}))
	defer server.Close()

	scrobbles, err := newTestClient(server).RecentTracks(context.Background(), 0, 2000)
	if err != nil {
		t.Fatalf("RecentTracks() error = %v", err)
	}
	if len(scrobbles) != 0 {
		t.Errorf("RecentTracks() returned %d scrobbles, want 0", len(scrobbles))
	}
}

func TestRecentTracks_FiltersNowPlaying(t *testing.T) {
	nowPlaying := `{"name": "Live Track", "artist": {"#text": "Artist"}, "@attr": {"nowplaying": "true"}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, recentTracksPage(1, nowPlaying, trackItem("Artist", "Finished Track", 1234)))
	}))
	defer server.Close()

	scrobbles, err := newTestClient(server).RecentTracks(context.Background(), 0, 2000)
	if err != nil {
		t.Fatalf("RecentTracks() error = %v", err)
	}
	if len(scrobbles) != 1 {
		t.Fatalf("RecentTracks() returned %d scrobbles, want 1", len(scrobbles))
	}
	if scrobbles[0].TrackName != "Finished Track" {
		t.Errorf("kept scrobble = %q, want the finished track", scrobbles[0].TrackName)
	}
}

func TestRecentTracks_HTTPErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := newTestClient(server).RecentTracks(context.Background(), 0, 2000); err == nil {
		t.Error("RecentTracks() returned nil error on HTTP 502")
	}
}

func TestRecentTracks_MissingEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	scrobbles, err := newTestClient(server).RecentTracks(context.Background(), 0, 2000)
	if err != nil {
		t.Fatalf("RecentTracks() error = %v", err)
	}
	if len(scrobbles) != 0 {
		t.Errorf("RecentTracks() returned %d scrobbles, want 0", len(scrobbles))
	}
}

func TestArtistInfo(t *testing.T) {
	tests := []struct {
		name     string
		query    InfoQuery
		response string
		want     string
		wantErr  error
	}{
		{
			name:     "found by name",
			query:    InfoQuery{Artist: "Radiohead"},
			response: `{"artist": {"name": "Radiohead", "mbid": "a74b1b7f", "tags": {"tag": [{"name": "rock"}]}}}`,
			want:     "Radiohead",
		},
		{
			name:     "found by mbid",
			query:    InfoQuery{MBID: "a74b1b7f"},
			response: `{"artist": {"name": "Radiohead"}}`,
			want:     "Radiohead",
		},
		{
			name:     "unknown artist",
			query:    InfoQuery{Artist: "nobody at all"},
			response: `{"error": 6, "message": "The artist you supplied could not be found"}`,
			wantErr:  ErrNotFound,
		},
		{
			name:     "invalid API key",
			query:    InfoQuery{Artist: "Radiohead"},
			response: `{"error": 10, "message": "Invalid API key"}`,
			wantErr:  ErrInvalidAPIKey,
		},
		{
			name:     "rate limited",
			query:    InfoQuery{Artist: "Radiohead"},
			response: `{"error": 29, "message": "Rate limit exceeded"}`,
			wantErr:  ErrRateLimited,
		},
		{
			name:    "no mbid and no name",
			query:   InfoQuery{},
			wantErr: ErrInvalidLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requestCount.Add(1)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.response)
			}))
			defer server.Close()

			info, err := newTestClient(server).ArtistInfo(context.Background(), tt.query)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ArtistInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(tt.wantErr, ErrInvalidLookup) && requestCount.Load() != 0 {
				t.Error("malformed lookup still issued a request")
			}
			if tt.wantErr != nil {
				return
			}
			if info.Name != tt.want {
				t.Errorf("ArtistInfo() name = %q, want %q", info.Name, tt.want)
			}
		})
	}
}

func TestTrackInfo_QueryParams(t *testing.T) {
	tests := []struct {
		name      string
		query     InfoQuery
		wantMBID  string
		wantTrack string
	}{
		{
			name:     "mbid preferred over names",
			query:    InfoQuery{MBID: "track-mbid", Artist: "Radiohead", Name: "Creep"},
			wantMBID: "track-mbid",
		},
		{
			name:      "falls back to names",
			query:     InfoQuery{Artist: "Radiohead", Name: "Creep"},
			wantTrack: "Creep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery map[string][]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query()
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"track": {"name": "Creep", "artist": {"name": "Radiohead"}, "userloved": "1", "userplaycount": "12"}}`)
			}))
			defer server.Close()

			info, err := newTestClient(server).TrackInfo(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("TrackInfo() error = %v", err)
			}

			if got := first(gotQuery["mbid"]); got != tt.wantMBID {
				t.Errorf("mbid param = %q, want %q", got, tt.wantMBID)
			}
			if got := first(gotQuery["track"]); got != tt.wantTrack {
				t.Errorf("track param = %q, want %q", got, tt.wantTrack)
			}
			if got := first(gotQuery["username"]); got != "testuser" {
				t.Errorf("username param = %q, want testuser", got)
			}
			if got := first(gotQuery["autocorrect"]); got != "1" {
				t.Errorf("autocorrect param = %q, want 1", got)
			}

			if loved := info.UserLoved.Value(); loved == nil || *loved != 1 {
				t.Errorf("UserLoved = %v, want 1", loved)
			}
		})
	}
}

func TestAlbumInfo_RequiresArtistAndTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("malformed lookup reached the server")
	}))
	defer server.Close()

	_, err := newTestClient(server).AlbumInfo(context.Background(), InfoQuery{Artist: "Radiohead"})
	if !errors.Is(err, ErrInvalidLookup) {
		t.Errorf("AlbumInfo() error = %v, want ErrInvalidLookup", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k", User: "u"}, zerolog.Nop())

	if client.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %s, want %s", client.baseURL, defaultBaseURL)
	}
	if client.pageSize != defaultPageSize {
		t.Errorf("pageSize = %d, want %d", client.pageSize, defaultPageSize)
	}
	if client.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, defaultTimeout)
	}
	if client.gate == nil {
		t.Error("gate is nil")
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
