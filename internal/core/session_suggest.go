package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// batchSize is how many tracks the queue-ten command asks for.
const batchSize = 10

// SuggestionsResult carries resolved user-requested suggestions back to the
// loop for enqueueing.
type SuggestionsResult struct {
	Tracks []Track
	Err    error
}

// FetchSuggestions runs the user-facing suggestion pipeline off the loop:
// suggest, resolve, filter repeats and dislikes. Read-only; the caller
// captures current on the loop. count 1 uses the single-suggestion prompt;
// a non-empty theme switches to the theme-playlist prompt.
func (s *Session) FetchSuggestions(ctx context.Context, current *Track, count int, theme string) SuggestionsResult {
	recommender := s.autodj.recommender

	if !s.autodj.gate.Allow() {
		return SuggestionsResult{Err: ErrRateLimited}
	}

	req := SuggestRequest{
		Current: current,
		Recent:  s.history.Recent(s.config.AutoDJ.RepeatWindow),
		Exclude: s.seen.Labels(),
		Theme:   theme,
	}

	var candidates []Candidate
	if count == 1 && theme == "" {
		candidate, err := recommender.Suggest(ctx, req)
		if err != nil {
			return SuggestionsResult{Err: err}
		}
		candidates = []Candidate{*candidate}
	} else {
		var err error
		candidates, err = recommender.SuggestBatch(ctx, req, count)
		if err != nil {
			return SuggestionsResult{Err: err}
		}
	}

	var tracks []Track
	for _, candidate := range candidates {
		track, err := s.playback.Resolve(ctx, candidate)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.logger.Debug("Skipping unresolvable suggestion",
					zap.String("candidate", candidate.Label()))
				continue
			}
			return SuggestionsResult{Err: err}
		}
		if s.history.IsRecent(track.ID, s.config.AutoDJ.RepeatWindow) {
			continue
		}
		if s.library != nil {
			if disliked, err := s.library.IsDisliked(ctx, track.ID); err == nil && disliked {
				s.logger.Debug("Skipping disliked suggestion",
					zap.String("track", track.Label()))
				continue
			}
		}
		tracks = append(tracks, *track)
	}

	if len(tracks) == 0 {
		return SuggestionsResult{Err: fmt.Errorf("%w: no usable suggestions", ErrNotFound)}
	}
	return SuggestionsResult{Tracks: tracks}
}

// ApplySuggestions enqueues fetched suggestions on the loop and returns a
// status line.
func (s *Session) ApplySuggestions(ctx context.Context, res SuggestionsResult) string {
	if res.Err != nil {
		switch {
		case errors.Is(res.Err, ErrRateLimited):
			return s.loc.T("cmd.rate_limited")
		case errors.Is(res.Err, ErrNotFound):
			return s.loc.T("cmd.not_found", "anything new")
		default:
			s.logger.Warn("Suggestion fetch failed", zap.Error(res.Err))
			return s.loc.T("autodj.unavailable", "a moment")
		}
	}

	queued := 0
	for _, track := range res.Tracks {
		// Recheck on the loop before each enqueue.
		if s.history.IsRecent(track.ID, s.config.AutoDJ.RepeatWindow) {
			continue
		}
		if err := s.playback.Enqueue(ctx, track); err != nil {
			s.logger.Warn("Enqueue failed",
				zap.String("track", track.Label()),
				zap.Error(err))
			break
		}
		if err := s.history.Record(HistoryEntry{
			Timestamp: s.now(),
			Track:     track,
			Source:    SourceUser,
			Action:    ActionQueued,
		}); err != nil {
			s.logger.Warn("History persistence failed", zap.Error(err))
		}
		s.seen.Add(track.Label())
		s.pending = append(s.pending, pendingTrack{Track: track, Source: SourceUser})
		s.metrics.RecordEnqueue(string(SourceUser))
		queued++
	}

	s.metrics.SetHistorySize(s.history.Size())

	switch queued {
	case 0:
		return s.loc.T("cmd.not_found", "anything new")
	case 1:
		return s.loc.T("cmd.queued_one", res.Tracks[0].Label())
	default:
		return s.loc.T("cmd.queued_many", queued)
	}
}

// BatchSize returns the track count for the queue-ten command.
func (s *Session) BatchSize() int {
	return batchSize
}

// Insight fetches background prose for a track. Slow; run off the loop.
func (s *Session) Insight(ctx context.Context, track Track) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return s.autodj.recommender.SongInsight(ctx, track)
}

// LyricBreakdown fetches lyrics and asks for an interpretation. Slow; run
// off the loop. Missing lyrics are not fatal: the model works from memory.
func (s *Session) LyricBreakdown(ctx context.Context, track Track) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	lyricsText := ""
	if s.lyricist != nil {
		var err error
		lyricsText, err = s.lyricist.Lyrics(ctx, track)
		if err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Debug("Lyrics fetch failed", zap.Error(err))
		}
	}

	return s.autodj.recommender.ExplainLyrics(ctx, track, lyricsText)
}

// Shutdown disables the Auto-DJ and flushes stores for a graceful exit.
func (s *Session) Shutdown() string {
	if s.autodj.Enabled() {
		s.autodj.Toggle()
	}
	size := s.history.Size()
	if err := s.history.Close(); err != nil {
		s.logger.Warn("History close failed", zap.Error(err))
	}
	return s.loc.T("session.goodbye", size)
}
