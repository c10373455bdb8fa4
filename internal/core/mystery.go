package core

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// mysteryOptionCount is how many follow-up options a mystery round surfaces.
const mysteryOptionCount = 5

// MysteryOption is one entry in a mystery round. Track is nil when the
// option did not resolve in the catalog.
type MysteryOption struct {
	Title  string
	Artist string
	Track  *Track
}

func (o MysteryOption) Label() string {
	return o.Title + " — " + o.Artist
}

// MysteryResult carries a fetched mystery round back to the loop.
type MysteryResult struct {
	// TrackID is the track the round was fetched for; a round is dropped
	// when the player has moved on by the time it lands.
	TrackID string
	Options []MysteryOption
	// Pick is the index of the backend's secret choice, -1 when absent.
	Pick int
	Err  error
}

// ToggleMystery flips mystery mode. Loop-only. Turning it off discards any
// outstanding round so the number keys go back to their usual commands.
func (s *Session) ToggleMystery() string {
	s.logCommand(CmdMysteryMode)
	s.mysteryOn = !s.mysteryOn
	if !s.mysteryOn {
		s.mysteryFor = ""
		s.mysteryChoices = nil
		return s.loc.T("mystery.off")
	}
	return s.loc.T("mystery.on")
}

func (s *Session) MysteryEnabled() bool { return s.mysteryOn }

// AwaitingMysteryChoice reports whether number keys should select a mystery
// option instead of running their usual commands.
func (s *Session) AwaitingMysteryChoice() bool { return len(s.mysteryChoices) > 0 }

// MysteryChoices returns the current round's options for display. The
// backend's own pick is never marked.
func (s *Session) MysteryChoices() []MysteryOption { return s.mysteryChoices }

// BeginMysteryRound returns the track a new round should be fetched for, or
// nil when none is due. It marks the round started so ticks do not refetch.
// Loop-only.
func (s *Session) BeginMysteryRound() *Track {
	if !s.mysteryOn || s.current == nil || s.mysteryFor == s.current.ID {
		return nil
	}
	s.mysteryFor = s.current.ID
	s.mysteryChoices = nil
	track := *s.current
	return &track
}

// FetchMystery asks the backend for a round of follow-up options and
// resolves them in the catalog. Read-only; run off the loop. Options that do
// not resolve stay in the list, unplayable, so the numbering the backend saw
// is preserved.
func (s *Session) FetchMystery(ctx context.Context, current *Track) MysteryResult {
	res := MysteryResult{Pick: -1}
	if current != nil {
		res.TrackID = current.ID
	}

	if !s.autodj.gate.Allow() {
		res.Err = ErrRateLimited
		return res
	}

	req := SuggestRequest{
		Current: current,
		Recent:  s.history.Recent(s.config.AutoDJ.RepeatWindow),
		Exclude: s.seen.Labels(),
	}

	var candidates []Candidate
	pick := -1
	var err error
	if picker, ok := s.autodj.recommender.(MysteryPicker); ok {
		candidates, pick, err = picker.MysteryOptions(ctx, req, mysteryOptionCount)
	} else {
		// Backends without a mystery prompt still work: the first batch
		// entry stands in for the secret pick.
		candidates, err = s.autodj.recommender.SuggestBatch(ctx, req, mysteryOptionCount)
		if len(candidates) > 0 {
			pick = 0
		}
	}
	if err != nil {
		res.Err = err
		return res
	}

	for _, candidate := range candidates {
		option := MysteryOption{Title: candidate.Title, Artist: candidate.Artist}
		track, err := s.playback.Resolve(ctx, candidate)
		switch {
		case err == nil:
			option.Track = track
		case errors.Is(err, ErrNotFound):
			s.logger.Debug("Mystery option unresolvable",
				zap.String("candidate", candidate.Label()))
		default:
			res.Err = err
			return res
		}
		res.Options = append(res.Options, option)
	}

	if pick >= 0 && pick < len(res.Options) {
		res.Pick = pick
	}
	return res
}

// ApplyMystery folds a fetched round in on the loop: it stores the options
// for display and secretly queues the backend's own pick. Returns a status
// line for the UI.
func (s *Session) ApplyMystery(ctx context.Context, res MysteryResult) string {
	if res.Err != nil {
		s.logger.Warn("Mystery round failed", zap.Error(res.Err))
		return ""
	}
	if !s.mysteryOn || s.current == nil || s.current.ID != res.TrackID {
		// The player moved on while the round was in flight.
		return ""
	}
	if len(res.Options) == 0 {
		return ""
	}
	s.mysteryChoices = res.Options

	if res.Pick >= 0 {
		if pick := res.Options[res.Pick].Track; pick != nil &&
			!s.history.IsRecent(pick.ID, s.config.AutoDJ.RepeatWindow) {
			if err := s.playback.Enqueue(ctx, *pick); err != nil {
				s.logger.Warn("Mystery enqueue failed",
					zap.String("track", pick.Label()),
					zap.Error(err))
			} else {
				if err := s.history.Record(HistoryEntry{
					Timestamp: s.now(),
					Track:     *pick,
					Source:    SourceAuto,
					Action:    ActionQueued,
				}); err != nil {
					s.logger.Warn("History persistence failed", zap.Error(err))
				}
				s.seen.Add(pick.Label())
				s.pending = append(s.pending, pendingTrack{
					Track:  *pick,
					Source: SourceAuto,
					Hidden: true,
				})
				s.metrics.RecordEnqueue(string(SourceAuto))
				s.metrics.SetHistorySize(s.history.Size())
			}
		}
	}

	return s.loc.T("mystery.round")
}

// ChooseMystery locks in the listener's selection (1-based) and closes the
// round. Returns the option to start playing, or nil with a status line when
// the choice is rejected. Loop-only; the caller starts playback off the loop.
func (s *Session) ChooseMystery(n int) (*MysteryOption, string) {
	if len(s.mysteryChoices) == 0 {
		return nil, s.loc.T("mystery.none")
	}
	if n < 1 || n > len(s.mysteryChoices) {
		return nil, s.loc.T("mystery.invalid")
	}
	choice := s.mysteryChoices[n-1]
	if choice.Track == nil {
		return nil, s.loc.T("mystery.unavailable")
	}
	s.mysteryChoices = nil
	return &choice, s.loc.T("mystery.playing", choice.Label())
}
