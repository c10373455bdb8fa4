// Package lyrics fetches lyrics from lrclib.net, with synced-line support
// for the lyrics panel.
package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"radiofree/internal/core"
)

// Lyrics is one fetched lyrics document. Synced is empty when the source
// only has plain text.
type Lyrics struct {
	Plain  string
	Synced []Line
}

// Line is one timed lyrics line.
type Line struct {
	At   time.Duration
	Text string
}

type lrclibResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
	Instrumental bool   `json:"instrumental"`
}

// Client fetches from the lrclib.net API and caches per track ID.
type Client struct {
	config     *core.LyricsConfig
	logger     *zap.Logger
	httpClient *http.Client
	cache      *lru.Cache[string, *Lyrics]
}

func NewClient(config *core.LyricsConfig, logger *zap.Logger) *Client {
	size := config.CacheSize
	if size <= 0 {
		size = 64
	}
	cache, _ := lru.New[string, *Lyrics](size)

	return &Client{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache,
	}
}

// Fetch returns lyrics for a track, from cache when possible. Instrumental
// tracks and unknown tracks report core.ErrNotFound.
func (c *Client) Fetch(ctx context.Context, track core.Track) (*Lyrics, error) {
	if cached, ok := c.cache.Get(track.ID); ok {
		return cached, nil
	}

	q := url.Values{}
	q.Set("track_name", track.Title)
	q.Set("artist_name", track.Artist)
	if track.Album != "" {
		q.Set("album_name", track.Album)
	}
	if track.Duration > 0 {
		q.Set("duration", fmt.Sprintf("%d", int(track.Duration.Seconds())))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/api/get?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: lyrics fetch: %v", core.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: no lyrics for %s", core.ErrNotFound, track.Label())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lyrics fetch status %d", core.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body lrclibResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode lyrics response: %w", err)
	}
	if body.Instrumental || (body.PlainLyrics == "" && body.SyncedLyrics == "") {
		return nil, fmt.Errorf("%w: no lyrics for %s", core.ErrNotFound, track.Label())
	}

	out := &Lyrics{
		Plain:  body.PlainLyrics,
		Synced: ParseLRC(body.SyncedLyrics),
	}
	c.cache.Add(track.ID, out)

	c.logger.Debug("Lyrics fetched",
		zap.String("track", track.Label()),
		zap.Int("synced_lines", len(out.Synced)))

	return out, nil
}

// Lyrics satisfies core.LyricsClient with the plain text form.
func (c *Client) Lyrics(ctx context.Context, track core.Track) (string, error) {
	l, err := c.Fetch(ctx, track)
	if err != nil {
		return "", err
	}
	return l.Plain, nil
}

// CurrentLine returns the synced line active at the given playback progress,
// and -1 when no line is active yet.
func (l *Lyrics) CurrentLine(progress time.Duration) int {
	current := -1
	for i, line := range l.Synced {
		if line.At > progress {
			break
		}
		current = i
	}
	return current
}
