package core

import (
	"context"
	"time"
)

// Candidate is an unresolved (title, artist) suggestion produced by the
// recommendation backend. It is untrusted input: there is no guarantee the
// track exists in the catalog.
type Candidate struct {
	Title  string
	Artist string
	// Intro is optional DJ narration for the track, when the backend
	// provides one.
	Intro string
}

// Label returns the "Title — Artist" form used in prompts and exclusion
// lists.
func (c Candidate) Label() string {
	return c.Title + " — " + c.Artist
}

// Track is a candidate that resolved to a playable track in the remote
// catalog. Immutable once created.
type Track struct {
	ID       string        `json:"id"`
	URI      string        `json:"uri"`
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (t Track) Label() string {
	return t.Title + " — " + t.Artist
}

// Source records who caused a history entry.
type Source string

const (
	// SourceUser marks entries caused by a direct user command.
	SourceUser Source = "user"
	// SourceAuto marks entries caused by the Auto-DJ loop.
	SourceAuto Source = "auto"
)

// Action records what happened to the track.
type Action string

const (
	ActionPlayed   Action = "played"
	ActionQueued   Action = "queued"
	ActionSkipped  Action = "skipped"
	ActionLiked    Action = "liked"
	ActionDisliked Action = "disliked"
)

// HistoryEntry is one record in the append-only session log. Entries are
// never mutated or deleted during a session, only appended.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Track     Track     `json:"track"`
	Source    Source    `json:"source"`
	Action    Action    `json:"action"`
}

// Command is a discrete user intent produced by the command source.
type Command int

const (
	CmdNone Command = iota
	CmdToggleAutoDJ
	CmdPlayPause
	CmdNextTrack
	CmdPreviousTrack
	CmdVolumeUp
	CmdVolumeDown
	CmdSuggestOne
	CmdSuggestTen
	CmdThemePlaylist
	CmdSongInsight
	CmdExplainLyrics
	CmdSaveTrack
	CmdDislikeTrack
	CmdMysteryMode
	CmdQuit
)

// String returns the label shown in the command log.
func (c Command) String() string {
	switch c {
	case CmdToggleAutoDJ:
		return "auto-dj"
	case CmdPlayPause:
		return "play/pause"
	case CmdNextTrack:
		return "next"
	case CmdPreviousTrack:
		return "previous"
	case CmdVolumeUp:
		return "volume up"
	case CmdVolumeDown:
		return "volume down"
	case CmdSuggestOne:
		return "queue one"
	case CmdSuggestTen:
		return "queue ten"
	case CmdThemePlaylist:
		return "theme playlist"
	case CmdSongInsight:
		return "song insight"
	case CmdExplainLyrics:
		return "lyric breakdown"
	case CmdSaveTrack:
		return "save"
	case CmdDislikeTrack:
		return "dislike"
	case CmdMysteryMode:
		return "mystery"
	case CmdQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// PlaybackState is a snapshot of the remote player.
type PlaybackState struct {
	Track    *Track
	Playing  bool
	Progress time.Duration
	// Volume is 0-100, or -1 when no device reported one.
	Volume int
}

// SuggestRequest carries playback context to the recommendation engine.
type SuggestRequest struct {
	// Current is the currently playing track, or nil when nothing plays.
	Current *Track
	// Recent supplies a window of recent history entries, most-recent-last.
	Recent []HistoryEntry
	// Exclude lists track labels the backend should not suggest again
	// this session.
	Exclude []string
	// Theme is set for theme-playlist requests only.
	Theme string
	// WithIntro asks the backend for a short DJ intro per candidate.
	WithIntro bool
}

// PlaybackClient is the remote playback adapter. Auth and token refresh are
// internal to the implementation. Resolve is read-only and never mutates
// playback state.
type PlaybackClient interface {
	State(ctx context.Context) (*PlaybackState, error)
	Resolve(ctx context.Context, candidate Candidate) (*Track, error)
	Enqueue(ctx context.Context, track Track) error
	Play(ctx context.Context) error
	PlayTrack(ctx context.Context, track Track) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	ChangeVolume(ctx context.Context, delta int) (int, error)
}

// Recommender produces track candidates and narrative text. Implementations
// own prompt construction and response parsing; retry policy belongs to the
// Auto-DJ controller, never here.
type Recommender interface {
	Suggest(ctx context.Context, req SuggestRequest) (*Candidate, error)
	SuggestBatch(ctx context.Context, req SuggestRequest, count int) ([]Candidate, error)
	SongInsight(ctx context.Context, track Track) (string, error)
	ExplainLyrics(ctx context.Context, track Track, lyrics string) (string, error)
}

// Narrator is an optional Recommender extension that produces a standalone
// DJ intro when the suggestion response carried none inline.
type Narrator interface {
	RadioIntro(ctx context.Context, candidate Candidate) (string, error)
}

// MysteryPicker is an optional Recommender extension for mystery rounds: it
// returns several follow-up options together with the zero-based index of
// the backend's own secret pick, -1 when the backend named none.
type MysteryPicker interface {
	MysteryOptions(ctx context.Context, req SuggestRequest, count int) ([]Candidate, int, error)
}

// HistoryStore is the append-only session log plus the repeat guard.
type HistoryStore interface {
	// Record appends an entry. The in-memory append always takes effect;
	// a non-nil error reports a persistence failure only.
	Record(entry HistoryEntry) error
	// IsRecent reports whether trackID appears among the last window
	// entries whose action is played or queued.
	IsRecent(trackID string, window int) bool
	// Recent returns at most window entries, most-recent-last.
	Recent(window int) []HistoryEntry
	Size() int
	Close() error
}

// SeenIndex tracks every candidate surfaced this session, for prompt
// exclusion lists. Unlike the repeat guard it has no window: once seen,
// always seen (modulo the probabilistic store behind it).
type SeenIndex interface {
	Add(label string)
	Contains(label string) bool
	Labels() []string
}

// LyricsClient fetches lyrics for the lyric-breakdown command and the
// synced-lyrics panel.
type LyricsClient interface {
	Lyrics(ctx context.Context, track Track) (string, error)
}

// Scrobbler submits listening data. Calls are fire-and-forget: failures are
// logged by the implementation and never propagated.
type Scrobbler interface {
	NowPlaying(ctx context.Context, track Track)
	Scrobble(ctx context.Context, track Track, startedAt time.Time)
}

// Library persists saved and disliked tracks across sessions.
type Library interface {
	Save(ctx context.Context, track Track) error
	Dislike(ctx context.Context, track Track) error
	IsDisliked(ctx context.Context, trackID string) (bool, error)
}

// Gate rate-limits recommendation calls against the upstream service.
type Gate interface {
	Allow() bool
}

// Metrics receives counters from the session and the Auto-DJ controller.
type Metrics interface {
	RecordSuggestion(status string)
	RecordEnqueue(source string)
	RecordRepeatRejected()
	RecordCommand(label string)
	SetAutoDJState(state string)
	SetHistorySize(size int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordSuggestion(string) {}
func (NopMetrics) RecordEnqueue(string)    {}
func (NopMetrics) RecordRepeatRejected()   {}
func (NopMetrics) RecordCommand(string)    {}
func (NopMetrics) SetAutoDJState(string)   {}
func (NopMetrics) SetHistorySize(int)      {}
