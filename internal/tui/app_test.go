package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"radiofree/internal/core"
	"radiofree/internal/i18n"
)

// hungPlayback blocks every playback call until release is closed.
type hungPlayback struct {
	release chan struct{}
}

func (p *hungPlayback) wait() { <-p.release }

func (p *hungPlayback) State(context.Context) (*core.PlaybackState, error) {
	p.wait()
	return &core.PlaybackState{Volume: -1}, nil
}

func (p *hungPlayback) Resolve(context.Context, core.Candidate) (*core.Track, error) {
	p.wait()
	return nil, core.ErrNotFound
}

func (p *hungPlayback) Enqueue(context.Context, core.Track) error   { p.wait(); return nil }
func (p *hungPlayback) Play(context.Context) error                  { p.wait(); return nil }
func (p *hungPlayback) PlayTrack(context.Context, core.Track) error { p.wait(); return nil }
func (p *hungPlayback) Pause(context.Context) error                 { p.wait(); return nil }
func (p *hungPlayback) Next(context.Context) error                  { p.wait(); return nil }
func (p *hungPlayback) Previous(context.Context) error              { p.wait(); return nil }
func (p *hungPlayback) ChangeVolume(context.Context, int) (int, error) {
	p.wait()
	return 0, nil
}

type stubHistory struct{}

func (stubHistory) Record(core.HistoryEntry) error { return nil }
func (stubHistory) IsRecent(string, int) bool      { return false }
func (stubHistory) Recent(int) []core.HistoryEntry { return nil }
func (stubHistory) Size() int                      { return 0 }
func (stubHistory) Close() error                   { return nil }

type stubSeen struct{}

func (stubSeen) Add(string)           {}
func (stubSeen) Contains(string) bool { return false }
func (stubSeen) Labels() []string     { return nil }

func newHungApp(pb *hungPlayback) (*App, *core.Session) {
	cfg := core.DefaultConfig()
	adj := core.NewAutoDJ(&cfg.AutoDJ, nil, pb, stubHistory{}, stubSeen{}, nil, core.NopMetrics{}, zap.NewNop())
	session := core.NewSession(cfg, core.SessionDeps{
		Playback:  pb,
		History:   stubHistory{},
		Seen:      stubSeen{},
		Localizer: i18n.NewLocalizer("en"),
		AutoDJ:    adj,
	}, zap.NewNop())

	app := NewApp(Options{Session: session, Playback: pb, Locale: "en", TickMs: 100}, zap.NewNop())
	return app, session
}

// A hung playback call must never stall the event loop: the key handler
// returns a tea.Cmd that carries the call, and later keys keep working while
// it is still in flight.
func TestKeyCommandDoesNotBlockUpdate(t *testing.T) {
	pb := &hungPlayback{release: make(chan struct{})}
	app, session := newHungApp(pb)

	start := time.Now()
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeySpace})
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Fatalf("Update blocked for %v on a hung playback call", elapsed)
	}
	if cmd == nil {
		t.Fatal("expected the playback call to run in a tea.Cmd")
	}

	// Start the off-loop call; it hangs on the playback client.
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	// The loop keeps taking keys while the call is in flight.
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if !session.AutoDJ().Enabled() {
		t.Error("toggle key was not processed while a command was in flight")
	}

	close(pb.release)
	select {
	case msg := <-done:
		out, ok := msg.(commandMsg)
		if !ok {
			t.Fatalf("message = %T, want commandMsg", msg)
		}
		if out.out.Err != nil {
			t.Fatalf("command outcome error = %v", out.out.Err)
		}
		app.Update(out)
		if !session.Playing() {
			t.Error("applied play outcome should mark the session playing")
		}
	case <-time.After(time.Second):
		t.Fatal("command never completed after release")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{time.Minute, "1:00"},
		{4*time.Minute + 7*time.Second, "4:07"},
		{61 * time.Minute, "61:00"},
	}
	for _, c := range cases {
		if got := formatDuration(c.in); got != c.want {
			t.Errorf("formatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWrap(t *testing.T) {
	got := wrap("one two three four five", 9)
	want := "one two\nthree\nfour five"
	if got != want {
		t.Errorf("wrap() = %q, want %q", got, want)
	}

	if got := wrap("short", 80); got != "short" {
		t.Errorf("wrap(short) = %q", got)
	}
	if got := wrap("anything", 0); got != "anything" {
		t.Errorf("zero width should pass through, got %q", got)
	}
}

func TestThemeInputEditing(t *testing.T) {
	a := &App{themeMode: true}

	a.handleThemeInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("jazz")})
	a.handleThemeInput(tea.KeyMsg{Type: tea.KeySpace})
	a.handleThemeInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	a.handleThemeInput(tea.KeyMsg{Type: tea.KeyBackspace})

	if a.themeInput != "jazz " {
		t.Errorf("themeInput = %q, want %q", a.themeInput, "jazz ")
	}

	a.handleThemeInput(tea.KeyMsg{Type: tea.KeyEscape})
	if a.themeMode {
		t.Error("escape should leave theme mode")
	}
}
