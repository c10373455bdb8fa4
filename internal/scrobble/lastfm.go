// Package scrobble submits listening data to Last.fm. All submissions are
// fire-and-forget: failures are logged and never interrupt the session.
package scrobble

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"radiofree/internal/core"
)

const apiURL = "https://ws.audioscrobbler.com/2.0/"

// minScrobblePlay is the least a track must have played before a scrobble
// counts, per the Last.fm submission rules.
const minScrobblePlay = 30 * time.Second

type Client struct {
	config     *core.LastfmConfig
	logger     *zap.Logger
	httpClient *http.Client
	apiURL     string
	now        func() time.Time
}

func NewClient(config *core.LastfmConfig, logger *zap.Logger) *Client {
	return &Client{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     apiURL,
		now:        time.Now,
	}
}

// Enabled reports whether credentials are configured. A disabled client
// turns every call into a no-op.
func (c *Client) Enabled() bool {
	return c.config.APIKey != "" && c.config.Secret != "" && c.config.SessionKey != ""
}

// NowPlaying announces the current track.
func (c *Client) NowPlaying(ctx context.Context, track core.Track) {
	if !c.Enabled() {
		return
	}

	params := map[string]string{
		"method": "track.updateNowPlaying",
		"artist": track.Artist,
		"track":  track.Title,
	}
	if track.Album != "" {
		params["album"] = track.Album
	}

	if err := c.submit(ctx, params); err != nil {
		c.logger.Warn("Now-playing submission failed",
			zap.String("track", track.Label()),
			zap.Error(err))
	}
}

// Scrobble submits a finished play that started at startedAt. Plays shorter
// than the Last.fm minimum are dropped.
func (c *Client) Scrobble(ctx context.Context, track core.Track, startedAt time.Time) {
	if !c.Enabled() {
		return
	}
	if c.now().Sub(startedAt) < minScrobblePlay {
		c.logger.Debug("Skipping scrobble for short play",
			zap.String("track", track.Label()))
		return
	}

	params := map[string]string{
		"method":    "track.scrobble",
		"artist":    track.Artist,
		"track":     track.Title,
		"timestamp": fmt.Sprintf("%d", startedAt.Unix()),
	}
	if track.Album != "" {
		params["album"] = track.Album
	}

	if err := c.submit(ctx, params); err != nil {
		c.logger.Warn("Scrobble failed",
			zap.String("track", track.Label()),
			zap.Error(err))
		return
	}

	c.logger.Debug("Scrobbled", zap.String("track", track.Label()))
}

func (c *Client) submit(ctx context.Context, params map[string]string) error {
	params["api_key"] = c.config.APIKey
	params["sk"] = c.config.SessionKey
	params["api_sig"] = sign(params, c.config.Secret)
	params["format"] = "json"

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("last.fm returned status %d", resp.StatusCode)
	}
	return nil
}

// sign computes the Last.fm API signature: md5 of the sorted key-value
// concatenation plus the shared secret. The format parameter is excluded.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "api_sig" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
