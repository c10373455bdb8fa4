package lyrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"radiofree/internal/core"
)

func testTrack() core.Track {
	return core.Track{ID: "t1", Title: "Seville", Artist: "Pinback", Duration: 4 * time.Minute}
}

func newTestClient(serverURL string) *Client {
	return NewClient(&core.LyricsConfig{
		BaseURL:   serverURL,
		CacheSize: 8,
		Timeout:   time.Second,
	}, zap.NewNop())
}

func TestFetchAndCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("track_name"); got != "Seville" {
			t.Errorf("track_name = %q", got)
		}
		w.Write([]byte(`{"plainLyrics": "line one\nline two", "syncedLyrics": "[00:10]line one"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	got, err := c.Fetch(context.Background(), testTrack())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Plain != "line one\nline two" {
		t.Errorf("Plain = %q", got.Plain)
	}
	if len(got.Synced) != 1 || got.Synced[0].At != 10*time.Second {
		t.Errorf("Synced = %+v", got.Synced)
	}

	// Second fetch is served from cache.
	if _, err := c.Fetch(context.Background(), testTrack()); err != nil {
		t.Fatalf("cached Fetch() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("server calls = %d, want 1", calls)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Fetch(context.Background(), testTrack())
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFetchInstrumental(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"instrumental": true}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Fetch(context.Background(), testTrack())
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Fetch(context.Background(), testTrack())
	if !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
}
