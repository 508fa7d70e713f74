// Package lastfm is the rate-limited Last.fm API client used by the sync
// engine for scrobble pagination and entity metadata lookups.
package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL  = "http://ws.audioscrobbler.com/2.0/"
	defaultPageSize = 200
	defaultTimeout  = 10 * time.Second

	// DefaultMinInterval spaces outbound calls. Last.fm allows roughly five
	// requests per second per key, so 200ms between requests is recommended.
	DefaultMinInterval = 200 * time.Millisecond

	userAgent = "last-analyzer/1.0"
)

// Last.fm API error codes.
const (
	errCodeNotFound      = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Sentinel errors.
var (
	// ErrNotFound is returned when Last.fm does not know the requested
	// entity. This is an expected, non-fatal outcome of a lookup.
	ErrNotFound = errors.New("not found on Last.fm")

	// ErrInvalidAPIKey is returned when the API key is rejected.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrRateLimited is returned when the API reports the rate limit was
	// exceeded despite the admission gate.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidLookup is returned when a lookup carries neither an mbid
	// nor the display names it needs. The reference is malformed and should
	// be skipped, not retried.
	ErrInvalidLookup = errors.New("lookup requires an mbid or a display name")
)

// Config holds Last.fm client configuration.
type Config struct {
	APIKey string
	// User is the configured identity whose history is mirrored. Lookups
	// pass it as username so responses include user playcount and loved.
	User string
	// BaseURL overrides the API endpoint (tests only).
	BaseURL string
	// MinInterval is the minimum spacing between call starts across all
	// operations. Zero means DefaultMinInterval; negative disables spacing.
	MinInterval time.Duration
	// Timeout bounds each HTTP call. Zero means the default.
	Timeout time.Duration
	// PageSize is the recent-tracks page size. Zero means the default.
	PageSize int
}

// Client is a Last.fm API client. All outbound calls, regardless of logical
// operation, pass through one shared admission gate.
type Client struct {
	apiKey     string
	user       string
	baseURL    string
	pageSize   int
	httpClient *http.Client
	gate       *gate
	log        zerolog.Logger
}

// NewClient creates a Last.fm client from the provided configuration.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	minInterval := cfg.MinInterval
	if minInterval == 0 {
		minInterval = DefaultMinInterval
	}
	return &Client{
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		baseURL:    baseURL,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		gate:       newGate(minInterval),
		log:        log.With().Str("component", "lastfm").Logger(),
	}
}

// RecentTracks fetches every completed scrobble for the configured user in
// the window [from, to] (unix seconds, inclusive), walking pages until the
// reported page count is reached or a page comes back empty. In-progress
// "now playing" items are dropped. Any transport or API failure aborts the
// whole fetch; partial results are never returned.
func (c *Client) RecentTracks(ctx context.Context, from, to int64) ([]Scrobble, error) {
	var scrobbles []Scrobble

	page := 1
	for {
		params := url.Values{
			"method":  {"user.getrecenttracks"},
			"user":    {c.user},
			"api_key": {c.apiKey},
			"format":  {"json"},
			"from":    {strconv.FormatInt(from, 10)},
			"to":      {strconv.FormatInt(to, 10)},
			"limit":   {strconv.Itoa(c.pageSize)},
			"page":    {strconv.Itoa(page)},
		}

		body, err := c.doRequest(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetching recent tracks page %d: %w", page, err)
		}

		var resp recentTracksResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing recent tracks page %d: %w", page, err)
		}
		if resp.RecentTracks == nil {
			// No envelope at all: the window is past the end of the feed.
			break
		}

		tracks, ok := decodeTrackList(resp.RecentTracks.Track)
		if !ok || len(tracks) == 0 {
			// Empty or non-list payloads mean end-of-stream. The API's
			// pagination metadata can be slightly stale, so this is normal.
			break
		}

		for _, t := range tracks {
			if t.nowPlaying() {
				continue
			}
			scrobbles = append(scrobbles, t.toScrobble())
		}

		totalPages := parsePageCount(resp.RecentTracks.Attr.TotalPages)
		if page >= totalPages {
			break
		}
		page++
	}

	c.log.Debug().
		Int("pages", page).
		Int("scrobbles", len(scrobbles)).
		Int64("from", from).
		Int64("to", to).
		Msg("fetched recent tracks")
	return scrobbles, nil
}

// ArtistInfo fetches artist metadata by mbid or by name.
// Returns ErrNotFound when the artist is unknown to Last.fm.
func (c *Client) ArtistInfo(ctx context.Context, q InfoQuery) (*ArtistInfo, error) {
	params := c.infoParams("artist.getInfo")
	switch {
	case q.MBID != "":
		params.Set("mbid", q.MBID)
	case q.Artist != "":
		params.Set("artist", q.Artist)
	default:
		return nil, ErrInvalidLookup
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching artist info: %w", err)
	}

	var resp artistInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artist info response: %w", err)
	}
	if resp.Artist == nil {
		return nil, ErrNotFound
	}
	return resp.Artist, nil
}

// AlbumInfo fetches album metadata by mbid or by (artist, album title).
// Returns ErrNotFound when the album is unknown to Last.fm.
func (c *Client) AlbumInfo(ctx context.Context, q InfoQuery) (*AlbumInfo, error) {
	params := c.infoParams("album.getInfo")
	switch {
	case q.MBID != "":
		params.Set("mbid", q.MBID)
	case q.Artist != "" && q.Name != "":
		params.Set("artist", q.Artist)
		params.Set("album", q.Name)
	default:
		return nil, ErrInvalidLookup
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching album info: %w", err)
	}

	var resp albumInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing album info response: %w", err)
	}
	if resp.Album == nil {
		return nil, ErrNotFound
	}
	return resp.Album, nil
}

// TrackInfo fetches track metadata by mbid or by (artist, track name).
// Returns ErrNotFound when the track is unknown to Last.fm.
func (c *Client) TrackInfo(ctx context.Context, q InfoQuery) (*TrackInfo, error) {
	params := c.infoParams("track.getInfo")
	switch {
	case q.MBID != "":
		params.Set("mbid", q.MBID)
	case q.Artist != "" && q.Name != "":
		params.Set("artist", q.Artist)
		params.Set("track", q.Name)
	default:
		return nil, ErrInvalidLookup
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching track info: %w", err)
	}

	var resp trackInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing track info response: %w", err)
	}
	if resp.Track == nil {
		return nil, ErrNotFound
	}
	return resp.Track, nil
}

// InfoQuery identifies an entity for a metadata lookup. MBID wins when set;
// otherwise Artist (plus Name for album and track lookups) is used.
type InfoQuery struct {
	MBID   string
	Artist string
	Name   string // album title or track name; unused for artist lookups
}

// infoParams builds the shared getInfo parameters. The configured username
// is attached so responses carry user-specific playcount and loved fields.
func (c *Client) infoParams(method string) url.Values {
	params := url.Values{
		"method":      {method},
		"api_key":     {c.apiKey},
		"format":      {"json"},
		"autocorrect": {"1"},
	}
	if c.user != "" {
		params.Set("username", c.user)
	}
	return params
}

// doRequest performs a single gated GET against the API. There is no
// within-call retry: failures surface to the orchestrator, which aborts the
// cycle and lets the next scheduled cycle re-attempt the same window.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.gate.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// The error envelope is more specific than the HTTP status, so check
	// it first (Last.fm serves some errors with a 200).
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeNotFound:
			return nil, ErrNotFound
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		case errCodeRateLimited:
			return nil, ErrRateLimited
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	return body, nil
}

// decodeTrackList decodes the recent-tracks list strictly: only a JSON
// array counts as a page of results. Everything else (absent, null, "",
// or the bare object the API emits in odd corners) reads as end-of-stream.
func decodeTrackList(raw json.RawMessage) ([]recentTrack, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var tracks []recentTrack
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, false
	}
	return tracks, true
}

// parsePageCount reads the totalPages attribute, defaulting to 1 when it is
// missing or malformed so a bad envelope cannot loop forever.
func parsePageCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
