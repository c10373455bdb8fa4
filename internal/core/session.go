package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"radiofree/internal/i18n"
)

// maxCommandLog bounds the command labels kept for the UI.
const maxCommandLog = 8

// maxPendingShown bounds the up-next list kept for the UI.
const maxPendingShown = 5

// pendingTrack is a track we queued that has not started playing yet.
// Hidden entries stay off the up-next list (mystery picks).
type pendingTrack struct {
	Track  Track
	Source Source
	Intro  string
	Hidden bool
}

// Session is the orchestrator: the sole owner of session state. All mutating
// methods must be called from the event loop; the *Fetch methods marked
// read-only may run in background goroutines.
type Session struct {
	config    *Config
	logger    *zap.Logger
	playback  PlaybackClient
	history   HistoryStore
	seen      SeenIndex
	lyricist  LyricsClient
	scrobbler Scrobbler
	library   Library
	metrics   Metrics
	loc       *i18n.Localizer
	autodj    *AutoDJ

	current    *Track
	playing    bool
	progress   time.Duration
	volume     int
	startedAt  time.Time
	pending    []pendingTrack
	commandLog []string
	now        func() time.Time

	mysteryOn      bool
	mysteryFor     string
	mysteryChoices []MysteryOption
}

type SessionDeps struct {
	Playback  PlaybackClient
	History   HistoryStore
	Seen      SeenIndex
	Lyrics    LyricsClient
	Scrobbler Scrobbler
	Library   Library
	Metrics   Metrics
	Localizer *i18n.Localizer
	AutoDJ    *AutoDJ
}

func NewSession(config *Config, deps SessionDeps, logger *zap.Logger) *Session {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Session{
		config:    config,
		logger:    logger,
		playback:  deps.Playback,
		history:   deps.History,
		seen:      deps.Seen,
		lyricist:  deps.Lyrics,
		scrobbler: deps.Scrobbler,
		library:   deps.Library,
		metrics:   metrics,
		loc:       deps.Localizer,
		autodj:    deps.AutoDJ,
		now:       time.Now,
	}
}

func (s *Session) AutoDJ() *AutoDJ          { return s.autodj }
func (s *Session) Current() *Track          { return s.current }
func (s *Session) Playing() bool            { return s.playing }
func (s *Session) Progress() time.Duration  { return s.progress }
func (s *Session) Volume() int              { return s.volume }
func (s *Session) CommandLog() []string     { return s.commandLog }
func (s *Session) HistorySize() int         { return s.history.Size() }

// Pending returns the up-next tracks for the UI, oldest first. Hidden
// entries are skipped so a mystery pick stays secret until it plays.
func (s *Session) Pending() []Track {
	out := make([]Track, 0, maxPendingShown)
	for _, p := range s.pending {
		if p.Hidden {
			continue
		}
		out = append(out, p.Track)
		if len(out) == maxPendingShown {
			break
		}
	}
	return out
}

// HasLibrary reports whether a favorites library is configured.
func (s *Session) HasLibrary() bool { return s.library != nil }

// CommandOutcome carries the result of a fast command's network side back to
// the loop for ApplyCommand.
type CommandOutcome struct {
	Cmd     Command
	Track   *Track
	Playing bool
	Volume  int
	Err     error
}

// ToggleAutoDJ flips the controller. Loop-only; no network involved.
func (s *Session) ToggleAutoDJ() string {
	s.logCommand(CmdToggleAutoDJ)
	if s.autodj.Toggle() == StateDisabled {
		return s.loc.T("autodj.disabled")
	}
	return s.loc.T("autodj.enabled")
}

// RunCommand performs the playback or library side of a fast command. It
// never touches loop-owned state: current and playing are captured by the
// caller on the loop before dispatching, so this may run in a tea.Cmd
// goroutine while the loop keeps handling keys.
func (s *Session) RunCommand(ctx context.Context, cmd Command, current *Track, playing bool) CommandOutcome {
	out := CommandOutcome{Cmd: cmd}

	switch cmd {
	case CmdPlayPause:
		if playing {
			out.Err = s.playback.Pause(ctx)
		} else {
			out.Err = s.playback.Play(ctx)
			out.Playing = true
		}

	case CmdNextTrack:
		out.Track = current
		out.Err = s.playback.Next(ctx)

	case CmdPreviousTrack:
		out.Err = s.playback.Previous(ctx)

	case CmdVolumeUp:
		out.Volume, out.Err = s.playback.ChangeVolume(ctx, +10)

	case CmdVolumeDown:
		out.Volume, out.Err = s.playback.ChangeVolume(ctx, -10)

	case CmdSaveTrack:
		if current == nil || s.library == nil {
			return out
		}
		out.Track = current
		out.Err = s.library.Save(ctx, *current)

	case CmdDislikeTrack:
		if current == nil || s.library == nil {
			return out
		}
		out.Track = current
		if out.Err = s.library.Dislike(ctx, *current); out.Err == nil {
			out.Err = s.playback.Next(ctx)
		}

	default:
		out.Err = fmt.Errorf("command %s is not a fast command", cmd)
	}
	return out
}

// ApplyCommand folds a command outcome into session state on the loop and
// returns a status line for the UI.
func (s *Session) ApplyCommand(out CommandOutcome) (string, error) {
	if out.Err != nil {
		return "", out.Err
	}

	switch out.Cmd {
	case CmdPlayPause:
		s.playing = out.Playing
		return "", nil

	case CmdNextTrack:
		if out.Track != nil {
			if err := s.history.Record(HistoryEntry{
				Timestamp: s.now(),
				Track:     *out.Track,
				Source:    SourceUser,
				Action:    ActionSkipped,
			}); err != nil {
				s.logger.Warn("History persistence failed", zap.Error(err))
			}
		}
		return "", nil

	case CmdVolumeUp, CmdVolumeDown:
		s.volume = out.Volume
		return s.loc.T("cmd.volume", out.Volume), nil

	case CmdSaveTrack:
		if out.Track == nil {
			return s.loc.T("cmd.nothing"), nil
		}
		if err := s.history.Record(HistoryEntry{
			Timestamp: s.now(),
			Track:     *out.Track,
			Source:    SourceUser,
			Action:    ActionLiked,
		}); err != nil {
			s.logger.Warn("History persistence failed", zap.Error(err))
		}
		return s.loc.T("cmd.saved", out.Track.Label()), nil

	case CmdDislikeTrack:
		if out.Track == nil {
			return s.loc.T("cmd.nothing"), nil
		}
		if err := s.history.Record(HistoryEntry{
			Timestamp: s.now(),
			Track:     *out.Track,
			Source:    SourceUser,
			Action:    ActionDisliked,
		}); err != nil {
			s.logger.Warn("History persistence failed", zap.Error(err))
		}
		return s.loc.T("cmd.disliked", out.Track.Label()), nil
	}
	return "", nil
}

// NoteCommand records a command in the log without executing anything. Used
// for the slow commands whose execution the UI dispatches itself.
func (s *Session) NoteCommand(cmd Command) {
	s.logCommand(cmd)
}

func (s *Session) logCommand(cmd Command) {
	s.metrics.RecordCommand(cmd.String())
	s.commandLog = append(s.commandLog, cmd.String())
	if len(s.commandLog) > maxCommandLog {
		s.commandLog = s.commandLog[len(s.commandLog)-maxCommandLog:]
	}
}

// ApplyPlayback folds a fresh player snapshot into the session. On a track
// change it records the play, scrobbles the previous track and announces the
// new one. Returns the intro text to surface, if the new track carried one.
func (s *Session) ApplyPlayback(state *PlaybackState) string {
	if state == nil {
		return ""
	}

	s.playing = state.Playing
	s.progress = state.Progress
	if state.Volume >= 0 {
		s.volume = state.Volume
	}

	if state.Track == nil {
		return ""
	}
	if s.current != nil && s.current.ID == state.Track.ID {
		return ""
	}

	previous := s.current
	previousStart := s.startedAt

	s.current = state.Track
	s.startedAt = s.now().Add(-state.Progress)
	// A track change ends any outstanding mystery round.
	s.mysteryChoices = nil

	intro := ""
	source := SourceUser
	if i := s.pendingIndex(state.Track.ID); i >= 0 {
		source = s.pending[i].Source
		intro = s.pending[i].Intro
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
	}

	if err := s.history.Record(HistoryEntry{
		Timestamp: s.now(),
		Track:     *state.Track,
		Source:    source,
		Action:    ActionPlayed,
	}); err != nil {
		s.logger.Warn("History persistence failed", zap.Error(err))
	}
	s.seen.Add(state.Track.Label())
	s.metrics.SetHistorySize(s.history.Size())

	if s.scrobbler != nil {
		if previous != nil {
			prev := *previous
			go s.scrobbler.Scrobble(context.Background(), prev, previousStart)
		}
		now := *state.Track
		go s.scrobbler.NowPlaying(context.Background(), now)
	}

	s.logger.Info("Track changed",
		zap.String("track", state.Track.Label()),
		zap.String("source", string(source)))

	return intro
}

func (s *Session) pendingIndex(trackID string) int {
	for i, p := range s.pending {
		if p.Track.ID == trackID {
			return i
		}
	}
	return -1
}

// MaybeAutoFetch asks the Auto-DJ controller for work. Called on each tick
// from the loop.
func (s *Session) MaybeAutoFetch() *FetchJob {
	return s.autodj.MaybeFetch(len(s.pending))
}

// RunAutoFetch executes a fetch job off the loop. Read-only. The current
// track is passed in explicitly: the caller captures it on the loop before
// dispatching, so the background fetch never reads loop-owned state.
func (s *Session) RunAutoFetch(ctx context.Context, job *FetchJob, current *Track) FetchResult {
	return s.autodj.Fetch(ctx, job, current)
}

// CompleteAutoFetch applies a fetch result on the loop and returns a status
// line for the UI.
func (s *Session) CompleteAutoFetch(ctx context.Context, res FetchResult) string {
	entry, err := s.autodj.Complete(ctx, res)
	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			return s.loc.T("autodj.unavailable", s.autodj.CooldownRemaining().Round(time.Second))
		}
		return ""
	}
	if entry == nil {
		return ""
	}

	s.pending = append(s.pending, pendingTrack{
		Track:  entry.Track,
		Source: SourceAuto,
		Intro:  res.Intro,
	})
	return s.loc.T("autodj.queued", entry.Track.Label())
}
