package scrobble

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"radiofree/internal/core"
)

func enabledConfig() *core.LastfmConfig {
	return &core.LastfmConfig{
		APIKey:     "key",
		Secret:     "secret",
		SessionKey: "session",
	}
}

func TestSign(t *testing.T) {
	params := map[string]string{
		"method":  "track.scrobble",
		"artist":  "Pinback",
		"track":   "Seville",
		"api_key": "key",
		"sk":      "session",
		"format":  "json",
	}

	got := sign(params, "secret")
	// md5("api_keykeyartistPinbackmethodtrack.scrobblesksessiontrackSevillesecret"),
	// with format excluded and keys sorted.
	if len(got) != 32 {
		t.Fatalf("signature length = %d", len(got))
	}
	if got != sign(params, "secret") {
		t.Error("signature not deterministic")
	}
	if got == sign(params, "other") {
		t.Error("secret does not influence signature")
	}

	delete(params, "format")
	if got != sign(params, "secret") {
		t.Error("format parameter should be excluded from the signature")
	}
}

func TestScrobbleSubmits(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.Write([]byte(`{"scrobbles": {}}`))
	}))
	defer server.Close()

	c := NewClient(enabledConfig(), zap.NewNop())
	c.apiURL = server.URL

	started := time.Now().Add(-2 * time.Minute)
	c.Scrobble(context.Background(), core.Track{Title: "Seville", Artist: "Pinback"}, started)

	if form == nil {
		t.Fatal("no submission received")
	}
	if got := form["method"]; len(got) == 0 || got[0] != "track.scrobble" {
		t.Errorf("method = %v", got)
	}
	if got := form["artist"]; len(got) == 0 || got[0] != "Pinback" {
		t.Errorf("artist = %v", got)
	}
	if len(form["api_sig"]) == 0 {
		t.Error("submission missing api_sig")
	}
}

func TestScrobbleSkipsShortPlay(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewClient(enabledConfig(), zap.NewNop())
	c.apiURL = server.URL

	c.Scrobble(context.Background(), core.Track{Title: "Seville", Artist: "Pinback"},
		time.Now().Add(-5*time.Second))

	if called {
		t.Error("short play should not be scrobbled")
	}
}

func TestDisabledClientIsNoOp(t *testing.T) {
	c := NewClient(&core.LastfmConfig{}, zap.NewNop())
	if c.Enabled() {
		t.Fatal("client without credentials should be disabled")
	}

	// Must not panic or make network calls.
	c.NowPlaying(context.Background(), core.Track{Title: "Seville", Artist: "Pinback"})
	c.Scrobble(context.Background(), core.Track{Title: "Seville", Artist: "Pinback"}, time.Now())
}
