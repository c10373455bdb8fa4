// Package spotify implements the playback adapter on the Spotify Web API.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"radiofree/internal/core"
)

const (
	// tokenFilePermission is the permission for the saved OAuth token.
	tokenFilePermission = 0o600
	// maxSearchResults bounds candidate resolution searches.
	maxSearchResults = 10
	// unknownArtist is used when a track carries no artist metadata.
	unknownArtist = "Unknown"
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
}

type tokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

// Authenticate restores a saved token or runs the OAuth code flow.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

// State returns a snapshot of the player. A nil Track means nothing is
// loaded on any device.
func (c *Client) State(ctx context.Context) (*core.PlaybackState, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: player state: %v", core.ErrUpstreamUnavailable, err)
	}
	if state == nil {
		// No active device: volume unknown.
		return &core.PlaybackState{Volume: -1}, nil
	}

	out := &core.PlaybackState{
		Playing:  state.Playing,
		Progress: time.Duration(state.Progress) * time.Millisecond,
		Volume:   int(state.Device.Volume),
	}
	if state.Item != nil {
		track := convertTrack(state.Item)
		out.Track = &track
	}
	return out, nil
}

// Resolve searches the catalog for a candidate and returns the best match
// above the configured relevance threshold. Read-only: playback state is
// never touched.
func (c *Client) Resolve(ctx context.Context, candidate core.Candidate) (*core.Track, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	query := fmt.Sprintf("track:%s artist:%s", candidate.Title, candidate.Artist)
	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(maxSearchResults))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", core.ErrUpstreamUnavailable, err)
	}

	var tracks []core.Track
	if results.Tracks != nil {
		for i := range results.Tracks.Tracks {
			tracks = append(tracks, convertTrack(&results.Tracks.Tracks[i]))
		}
	}

	// Field-scoped search misses loose matches; retry with free text.
	if len(tracks) == 0 {
		results, err = c.client.Search(ctx, candidate.Title+" "+candidate.Artist,
			spotify.SearchTypeTrack, spotify.Limit(maxSearchResults))
		if err != nil {
			return nil, fmt.Errorf("%w: search: %v", core.ErrUpstreamUnavailable, err)
		}
		if results.Tracks != nil {
			for i := range results.Tracks.Tracks {
				tracks = append(tracks, convertTrack(&results.Tracks.Tracks[i]))
			}
		}
	}

	best, score := bestMatch(tracks, candidate)
	if best == nil || score < c.config.MinRelevance {
		c.logger.Debug("No acceptable match",
			zap.String("candidate", candidate.Label()),
			zap.Float64("best_score", score),
			zap.Int("results", len(tracks)))
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, candidate.Label())
	}

	c.logger.Debug("Candidate resolved",
		zap.String("candidate", candidate.Label()),
		zap.String("track", best.Label()),
		zap.Float64("score", score))

	return best, nil
}

// Enqueue appends a track to the playback queue.
func (c *Client) Enqueue(ctx context.Context, track core.Track) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if err := c.client.QueueSong(ctx, spotify.ID(track.ID)); err != nil {
		return fmt.Errorf("%w: queue: %v", core.ErrUpstreamUnavailable, err)
	}

	c.logger.Info("Track queued", zap.String("track", track.Label()))
	return nil
}

func (c *Client) Play(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}
	if err := c.client.Play(ctx); err != nil {
		return fmt.Errorf("%w: play: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

// PlayTrack starts immediate playback of a specific track.
func (c *Client) PlayTrack(ctx context.Context, track core.Track) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}
	opts := &spotify.PlayOptions{URIs: []spotify.URI{spotify.URI(track.URI)}}
	if err := c.client.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("%w: play track: %v", core.ErrUpstreamUnavailable, err)
	}
	c.logger.Info("Track started", zap.String("track", track.Label()))
	return nil
}

func (c *Client) Pause(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}
	if err := c.client.Pause(ctx); err != nil {
		return fmt.Errorf("%w: pause: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (c *Client) Next(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}
	if err := c.client.Next(ctx); err != nil {
		return fmt.Errorf("%w: next: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (c *Client) Previous(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}
	if err := c.client.Previous(ctx); err != nil {
		return fmt.Errorf("%w: previous: %v", core.ErrUpstreamUnavailable, err)
	}
	return nil
}

// ChangeVolume adjusts volume by delta percent and returns the new value.
func (c *Client) ChangeVolume(ctx context.Context, delta int) (int, error) {
	if c.client == nil {
		return 0, fmt.Errorf("client not authenticated")
	}

	state, err := c.client.PlayerState(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: player state: %v", core.ErrUpstreamUnavailable, err)
	}

	volume := clampVolume(int(state.Device.Volume) + delta)
	if err := c.client.Volume(ctx, volume); err != nil {
		return 0, fmt.Errorf("%w: volume: %v", core.ErrUpstreamUnavailable, err)
	}
	return volume, nil
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	state := "radiofree-auth-state"
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.config.TokenPath)
	if err != nil {
		return nil, err
	}

	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, err
	}
	if td.Token == nil {
		return nil, fmt.Errorf("empty token file")
	}
	return td.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.config.TokenPath, data, tokenFilePermission)
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func convertTrack(t *spotify.FullTrack) core.Track {
	artist := unknownArtist
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}

	return core.Track{
		ID:       string(t.ID),
		URI:      string(t.URI),
		Title:    t.Name,
		Artist:   artist,
		Album:    t.Album.Name,
		Duration: t.TimeDuration(),
	}
}
