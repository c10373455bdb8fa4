package core

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// AutoDJState is the controller state. Transitions happen only on the
// session loop.
type AutoDJState int

const (
	StateDisabled AutoDJState = iota
	StateIdle
	StateFetching
	StateCooldown
)

func (s AutoDJState) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// FetchJob is a ticket for one recommendation fetch. The generation pins the
// job to the controller state it was issued under.
type FetchJob struct {
	Generation uint64
	WithIntro  bool
}

// FetchResult is the outcome of a fetch, applied back on the session loop.
type FetchResult struct {
	Generation uint64
	Track      *Track
	Intro      string
	Err        error
}

// AutoDJ drives the automated recommendation loop. All methods except Fetch
// must be called from the session loop; the controller is deliberately not
// self-locking. Fetch runs in the background and only reads.
type AutoDJ struct {
	config      *AutoDJConfig
	recommender Recommender
	playback    PlaybackClient
	history     HistoryStore
	seen        SeenIndex
	gate        Gate
	metrics     Metrics
	logger      *zap.Logger

	state         AutoDJState
	generation    uint64
	failures      int
	cooldownUntil time.Time
	introCounter  int
	now           func() time.Time
}

func NewAutoDJ(
	config *AutoDJConfig,
	recommender Recommender,
	playback PlaybackClient,
	history HistoryStore,
	seen SeenIndex,
	gate Gate,
	metrics Metrics,
	logger *zap.Logger,
) *AutoDJ {
	return &AutoDJ{
		config:      config,
		recommender: recommender,
		playback:    playback,
		history:     history,
		seen:        seen,
		gate:        gate,
		metrics:     metrics,
		logger:      logger,
		state:       StateDisabled,
		now:         time.Now,
	}
}

func (a *AutoDJ) State() AutoDJState {
	return a.state
}

func (a *AutoDJ) Enabled() bool {
	return a.state != StateDisabled
}

// CooldownRemaining returns how long until the next fetch may trigger, zero
// outside cooldown.
func (a *AutoDJ) CooldownRemaining() time.Duration {
	if a.state != StateCooldown {
		return 0
	}
	remaining := a.cooldownUntil.Sub(a.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Toggle flips the controller on or off and returns the new state. Turning
// off from any state bumps the generation, so in-flight fetch results land
// as no-ops.
func (a *AutoDJ) Toggle() AutoDJState {
	if a.state == StateDisabled {
		a.state = StateIdle
		a.failures = 0
		a.cooldownUntil = time.Time{}
		a.logger.Info("Auto-DJ enabled")
	} else {
		a.generation++
		a.state = StateDisabled
		a.logger.Info("Auto-DJ disabled")
	}
	a.metrics.SetAutoDJState(a.state.String())
	return a.state
}

// MaybeFetch advances cooldown and, when the pending queue has drained below
// the configured level, issues a fetch job. A nil return means nothing to do.
func (a *AutoDJ) MaybeFetch(queueDepth int) *FetchJob {
	if a.state == StateCooldown && !a.now().Before(a.cooldownUntil) {
		a.state = StateIdle
		a.metrics.SetAutoDJState(a.state.String())
	}

	if a.state != StateIdle {
		return nil
	}
	if queueDepth >= a.config.QueueAhead {
		return nil
	}

	a.state = StateFetching
	a.metrics.SetAutoDJState(a.state.String())

	return &FetchJob{
		Generation: a.generation,
		WithIntro:  a.wantIntro(),
	}
}

// Fetch runs the recommendation pipeline for a job: gate, suggest, resolve,
// repeat guard. It never mutates controller or session state; the result is
// handed back to Complete on the loop. Safe to run in a background goroutine.
func (a *AutoDJ) Fetch(ctx context.Context, job *FetchJob, current *Track) FetchResult {
	res := FetchResult{Generation: job.Generation}

	if !a.gate.Allow() {
		res.Err = ErrRateLimited
		return res
	}

	candidate, err := a.recommender.Suggest(ctx, SuggestRequest{
		Current:   current,
		Recent:    a.history.Recent(a.config.RepeatWindow),
		Exclude:   a.seen.Labels(),
		WithIntro: job.WithIntro,
	})
	if err != nil {
		res.Err = err
		return res
	}

	track, err := a.playback.Resolve(ctx, *candidate)
	if err != nil {
		res.Err = err
		return res
	}

	if a.history.IsRecent(track.ID, a.config.RepeatWindow) {
		res.Err = ErrRepeatRejected
		return res
	}

	res.Track = track
	res.Intro = candidate.Intro
	if job.WithIntro && res.Intro == "" {
		if narrator, ok := a.recommender.(Narrator); ok {
			if intro, err := narrator.RadioIntro(ctx, *candidate); err == nil {
				res.Intro = intro
			}
		}
	}
	return res
}

// Complete applies a fetch result on the session loop. Stale results, or any
// result arriving while disabled, are dropped. The returned entry is non-nil
// when a track was enqueued.
func (a *AutoDJ) Complete(ctx context.Context, res FetchResult) (*HistoryEntry, error) {
	if res.Generation != a.generation || a.state != StateFetching {
		a.logger.Debug("Dropping stale fetch result",
			zap.Uint64("generation", res.Generation),
			zap.String("state", a.state.String()))
		return nil, nil
	}

	if res.Err != nil {
		a.fail(res.Err)
		return nil, res.Err
	}

	// Recheck on the loop: another enqueue may have landed since the
	// background check.
	if a.history.IsRecent(res.Track.ID, a.config.RepeatWindow) {
		a.metrics.RecordRepeatRejected()
		a.fail(ErrRepeatRejected)
		return nil, ErrRepeatRejected
	}

	if err := a.playback.Enqueue(ctx, *res.Track); err != nil {
		a.fail(err)
		return nil, err
	}

	entry := HistoryEntry{
		Timestamp: a.now(),
		Track:     *res.Track,
		Source:    SourceAuto,
		Action:    ActionQueued,
	}
	if err := a.history.Record(entry); err != nil {
		// Memory stays authoritative; persistence trouble is not a
		// fetch failure.
		a.logger.Warn("History persistence failed", zap.Error(err))
	}
	a.seen.Add(res.Track.Label())

	a.failures = 0
	a.state = StateIdle
	a.metrics.SetAutoDJState(a.state.String())
	a.metrics.RecordSuggestion("ok")
	a.metrics.RecordEnqueue(string(SourceAuto))
	a.metrics.SetHistorySize(a.history.Size())

	a.logger.Info("Auto-DJ queued track",
		zap.String("track", res.Track.Label()))

	return &entry, nil
}

// fail moves to cooldown, widening it with each consecutive failure.
func (a *AutoDJ) fail(err error) {
	cooldown := a.backoff()

	switch {
	case errors.Is(err, ErrRepeatRejected):
		a.failures++
		a.metrics.RecordSuggestion("repeat")
		a.logger.Debug("Suggestion rejected as repeat", zap.Error(err))
	case errors.Is(err, ErrRateLimited):
		// The local gate refused; wait for the window, no failure streak.
		cooldown = time.Duration(a.config.CooldownSecs) * time.Second
		a.metrics.RecordSuggestion("rate_limited")
		a.logger.Debug("Fetch held back by rate gate")
	case errors.Is(err, ErrUpstreamUnavailable):
		a.failures++
		upstream := time.Duration(a.config.UpstreamCooldownSecs) * time.Second
		if upstream > cooldown {
			cooldown = upstream
		}
		a.metrics.RecordSuggestion("upstream_error")
		a.logger.Warn("Upstream unavailable", zap.Error(err))
	default:
		// Parse failures, unresolvable candidates and the rest.
		a.failures++
		a.metrics.RecordSuggestion("error")
		a.logger.Warn("Fetch failed", zap.Error(err))
	}

	a.state = StateCooldown
	a.cooldownUntil = a.now().Add(cooldown)
	a.metrics.SetAutoDJState(a.state.String())

	a.logger.Debug("Auto-DJ cooling down",
		zap.Duration("cooldown", cooldown),
		zap.Int("consecutive_failures", a.failures))
}

// backoff doubles the base cooldown per consecutive failure, capped.
func (a *AutoDJ) backoff() time.Duration {
	base := time.Duration(a.config.CooldownSecs) * time.Second
	maxCooldown := time.Duration(a.config.MaxCooldownSecs) * time.Second

	cooldown := base
	for i := 0; i < a.failures; i++ {
		cooldown *= 2
		if cooldown >= maxCooldown {
			return maxCooldown
		}
	}
	return cooldown
}

// wantIntro decides per job whether to ask for DJ narration, following the
// configured chatter level.
func (a *AutoDJ) wantIntro() bool {
	switch {
	case a.config.ChatterLevel <= 0:
		return false
	case a.config.ChatterLevel >= 2:
		return true
	default:
		a.introCounter++
		return a.introCounter%2 == 1
	}
}
