package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// --- hand mocks ---

type mockRecommender struct {
	mu        sync.Mutex
	candidate *Candidate
	batch     []Candidate
	err       error
	calls     int
	lastReq   SuggestRequest
}

func (m *mockRecommender) Suggest(_ context.Context, req SuggestRequest) (*Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	c := *m.candidate
	return &c, nil
}

func (m *mockRecommender) SuggestBatch(_ context.Context, req SuggestRequest, count int) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	out := m.batch
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (m *mockRecommender) SongInsight(context.Context, Track) (string, error) {
	return "insight", nil
}

func (m *mockRecommender) ExplainLyrics(context.Context, Track, string) (string, error) {
	return "breakdown", nil
}

type mockPlayback struct {
	mu         sync.Mutex
	catalog    map[string]Track // key "Title|Artist"
	state      *PlaybackState
	enqueued   []Track
	played     []Track
	enqueueErr error
	resolveErr error
}

func (m *mockPlayback) State(context.Context) (*PlaybackState, error) {
	if m.state == nil {
		return &PlaybackState{Volume: -1}, nil
	}
	return m.state, nil
}

func (m *mockPlayback) Resolve(_ context.Context, candidate Candidate) (*Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	track, ok := m.catalog[candidate.Title+"|"+candidate.Artist]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, candidate.Label())
	}
	return &track, nil
}

func (m *mockPlayback) Enqueue(_ context.Context, track Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, track)
	return nil
}

func (m *mockPlayback) enqueueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enqueued)
}

func (m *mockPlayback) Play(context.Context) error     { return nil }
func (m *mockPlayback) Pause(context.Context) error    { return nil }
func (m *mockPlayback) Next(context.Context) error     { return nil }
func (m *mockPlayback) Previous(context.Context) error { return nil }

func (m *mockPlayback) PlayTrack(_ context.Context, track Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, track)
	return nil
}

func (m *mockPlayback) ChangeVolume(_ context.Context, delta int) (int, error) {
	return 50 + delta, nil
}

type mockHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (m *mockHistory) Record(entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistory) IsRecent(trackID string, window int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := 0
	for i := len(m.entries) - 1; i >= 0 && seen < window; i-- {
		e := m.entries[i]
		if e.Action != ActionPlayed && e.Action != ActionQueued {
			continue
		}
		if e.Track.ID == trackID {
			return true
		}
		seen++
	}
	return false
}

func (m *mockHistory) Recent(window int) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if window > len(m.entries) {
		window = len(m.entries)
	}
	return append([]HistoryEntry(nil), m.entries[len(m.entries)-window:]...)
}

func (m *mockHistory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockHistory) Close() error { return nil }

func (m *mockHistory) last() *HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	e := m.entries[len(m.entries)-1]
	return &e
}

type mockSeen struct {
	mu     sync.Mutex
	labels []string
}

func (m *mockSeen) Add(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels = append(m.labels, label)
}

func (m *mockSeen) Contains(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (m *mockSeen) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.labels...)
}

type openGate struct{}

func (openGate) Allow() bool { return true }

type closedGate struct{}

func (closedGate) Allow() bool { return false }

// --- fixtures ---

func testAutoDJConfig() *AutoDJConfig {
	return &AutoDJConfig{
		RepeatWindow:         5,
		QueueAhead:           2,
		CooldownSecs:         15,
		MaxCooldownSecs:      300,
		UpstreamCooldownSecs: 120,
		CallsPerMinute:       10,
		ChatterLevel:         0,
	}
}

func sevillle() Track {
	return Track{ID: "t-seville", URI: "spotify:track:t-seville", Title: "Seville", Artist: "Pinback"}
}

func newTestAutoDJ(rec *mockRecommender, pb *mockPlayback, hist *mockHistory) *AutoDJ {
	return NewAutoDJ(testAutoDJConfig(), rec, pb, hist, &mockSeen{}, openGate{}, NopMetrics{}, zap.NewNop())
}

// --- scenario A: enable, fetch, enqueue exactly once ---

func TestEnableFetchEnqueue(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	hist := &mockHistory{}
	adj := newTestAutoDJ(rec, pb, hist)

	if adj.Toggle() != StateIdle {
		t.Fatal("toggle should enable")
	}

	job := adj.MaybeFetch(0)
	if job == nil {
		t.Fatal("expected a fetch job")
	}
	if adj.State() != StateFetching {
		t.Fatalf("state = %s, want fetching", adj.State())
	}

	res := adj.Fetch(context.Background(), job, nil)
	if res.Err != nil {
		t.Fatalf("Fetch() error = %v", res.Err)
	}

	entry, err := adj.Complete(context.Background(), res)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if entry == nil {
		t.Fatal("expected an enqueued entry")
	}

	if pb.enqueueCount() != 1 {
		t.Fatalf("enqueue calls = %d, want 1", pb.enqueueCount())
	}
	if pb.enqueued[0].ID != "t-seville" {
		t.Errorf("enqueued %s, want t-seville", pb.enqueued[0].ID)
	}

	last := hist.last()
	if last == nil || last.Action != ActionQueued || last.Source != SourceAuto {
		t.Errorf("history entry = %+v, want queued/auto", last)
	}
	if adj.State() != StateIdle {
		t.Errorf("state after success = %s, want idle", adj.State())
	}
}

// --- scenario B: repeat guard rejects, no enqueue, cooldown ---

func TestRepeatRejectedEntersCooldown(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	hist := &mockHistory{}
	adj := newTestAutoDJ(rec, pb, hist)

	// Seville sits inside the repeat window.
	hist.Record(HistoryEntry{Track: sevillle(), Source: SourceAuto, Action: ActionQueued})
	hist.Record(HistoryEntry{Track: Track{ID: "t-other"}, Source: SourceAuto, Action: ActionPlayed})

	adj.Toggle()
	job := adj.MaybeFetch(0)
	res := adj.Fetch(context.Background(), job, nil)
	if !errors.Is(res.Err, ErrRepeatRejected) {
		t.Fatalf("Fetch() error = %v, want ErrRepeatRejected", res.Err)
	}

	if _, err := adj.Complete(context.Background(), res); !errors.Is(err, ErrRepeatRejected) {
		t.Fatalf("Complete() error = %v, want ErrRepeatRejected", err)
	}

	if pb.enqueueCount() != 0 {
		t.Errorf("enqueue calls = %d, want 0", pb.enqueueCount())
	}
	if adj.State() != StateCooldown {
		t.Errorf("state = %s, want cooldown", adj.State())
	}
}

// --- scenario C: toggle off mid-fetch discards the in-flight result ---

func TestToggleOffDiscardsInFlightResult(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	hist := &mockHistory{}
	adj := newTestAutoDJ(rec, pb, hist)

	adj.Toggle()
	job := adj.MaybeFetch(0)
	res := adj.Fetch(context.Background(), job, nil)
	if res.Err != nil {
		t.Fatalf("Fetch() error = %v", res.Err)
	}

	// Toggle off while the result is still in flight.
	if adj.Toggle() != StateDisabled {
		t.Fatal("toggle should disable")
	}

	entry, err := adj.Complete(context.Background(), res)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if entry != nil {
		t.Error("stale result should be dropped")
	}
	if pb.enqueueCount() != 0 {
		t.Errorf("enqueue calls = %d, want 0", pb.enqueueCount())
	}
	if hist.Size() != 0 {
		t.Errorf("history size = %d, want 0", hist.Size())
	}
	if adj.State() != StateDisabled {
		t.Errorf("state = %s, want disabled", adj.State())
	}
}

// --- scenario D: consecutive failures widen cooldown, success resets ---

func TestBackoffWidensAndResets(t *testing.T) {
	rec := &mockRecommender{err: fmt.Errorf("%w: gibberish", ErrParseFailure)}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	hist := &mockHistory{}
	adj := newTestAutoDJ(rec, pb, hist)

	now := time.Now()
	adj.now = func() time.Time { return now }
	adj.Toggle()

	failOnce := func() time.Duration {
		job := adj.MaybeFetch(0)
		if job == nil {
			t.Fatal("expected a fetch job")
		}
		res := adj.Fetch(context.Background(), job, nil)
		adj.Complete(context.Background(), res)
		if adj.State() != StateCooldown {
			t.Fatalf("state = %s, want cooldown", adj.State())
		}
		d := adj.cooldownUntil.Sub(now)
		// Drain the cooldown for the next round.
		now = adj.cooldownUntil
		return d
	}

	first := failOnce()
	second := failOnce()
	third := failOnce()

	if first != 15*time.Second {
		t.Errorf("first cooldown = %v, want 15s", first)
	}
	if second != 2*first {
		t.Errorf("second cooldown = %v, want %v", second, 2*first)
	}
	if third != 2*second {
		t.Errorf("third cooldown = %v, want %v", third, 2*second)
	}

	// A success resets the streak.
	rec.mu.Lock()
	rec.err = nil
	rec.candidate = &Candidate{Title: "Seville", Artist: "Pinback"}
	rec.mu.Unlock()

	job := adj.MaybeFetch(0)
	res := adj.Fetch(context.Background(), job, nil)
	if _, err := adj.Complete(context.Background(), res); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	rec.mu.Lock()
	rec.err = fmt.Errorf("%w: gibberish", ErrParseFailure)
	rec.mu.Unlock()

	// Push the repeat window out of the way for the next fetch.
	if d := failOnce(); d != 15*time.Second {
		t.Errorf("cooldown after reset = %v, want 15s", d)
	}
}

// --- remaining edges ---

func TestNoFetchWhileDisabled(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	adj := newTestAutoDJ(rec, pb, &mockHistory{})

	if job := adj.MaybeFetch(0); job != nil {
		t.Error("disabled controller should not issue jobs")
	}
	if rec.calls != 0 {
		t.Errorf("recommender calls = %d, want 0", rec.calls)
	}
}

func TestNoFetchWhenQueueFull(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	adj := newTestAutoDJ(rec, pb, &mockHistory{})

	adj.Toggle()
	if job := adj.MaybeFetch(2); job != nil {
		t.Error("full pending queue should suppress fetching")
	}
	if adj.State() != StateIdle {
		t.Errorf("state = %s, want idle", adj.State())
	}
}

func TestRateGateRefusal(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	adj := NewAutoDJ(testAutoDJConfig(), rec, pb, &mockHistory{}, &mockSeen{}, closedGate{}, NopMetrics{}, zap.NewNop())

	adj.Toggle()
	job := adj.MaybeFetch(0)
	res := adj.Fetch(context.Background(), job, nil)
	if !errors.Is(res.Err, ErrRateLimited) {
		t.Fatalf("Fetch() error = %v, want ErrRateLimited", res.Err)
	}
	if rec.calls != 0 {
		t.Errorf("recommender calls = %d, want 0", rec.calls)
	}

	adj.Complete(context.Background(), res)
	if adj.State() != StateCooldown {
		t.Errorf("state = %s, want cooldown", adj.State())
	}
}

func TestUpstreamUnavailableExtendsCooldown(t *testing.T) {
	rec := &mockRecommender{err: fmt.Errorf("%w: 503", ErrUpstreamUnavailable)}
	pb := &mockPlayback{}
	adj := newTestAutoDJ(rec, pb, &mockHistory{})

	now := time.Now()
	adj.now = func() time.Time { return now }
	adj.Toggle()

	job := adj.MaybeFetch(0)
	res := adj.Fetch(context.Background(), job, nil)
	adj.Complete(context.Background(), res)

	if got := adj.cooldownUntil.Sub(now); got != 120*time.Second {
		t.Errorf("upstream cooldown = %v, want 120s", got)
	}
}

func TestCooldownDrainsBackToIdle(t *testing.T) {
	rec := &mockRecommender{err: fmt.Errorf("%w: gibberish", ErrParseFailure)}
	adj := newTestAutoDJ(rec, &mockPlayback{}, &mockHistory{})

	now := time.Now()
	adj.now = func() time.Time { return now }
	adj.Toggle()

	job := adj.MaybeFetch(0)
	adj.Complete(context.Background(), adj.Fetch(context.Background(), job, nil))

	// Still cooling down: no job.
	if job := adj.MaybeFetch(0); job != nil {
		t.Fatal("cooldown should suppress fetching")
	}

	now = now.Add(16 * time.Second)
	if job := adj.MaybeFetch(0); job == nil {
		t.Fatal("expired cooldown should allow fetching again")
	}
}

func TestSuggestRequestCarriesExclusions(t *testing.T) {
	rec := &mockRecommender{candidate: &Candidate{Title: "Seville", Artist: "Pinback"}}
	pb := &mockPlayback{catalog: map[string]Track{"Seville|Pinback": sevillle()}}
	hist := &mockHistory{}
	seen := &mockSeen{}
	seen.Add("Nude — Radiohead")
	adj := NewAutoDJ(testAutoDJConfig(), rec, pb, hist, seen, openGate{}, NopMetrics{}, zap.NewNop())

	adj.Toggle()
	job := adj.MaybeFetch(0)
	adj.Fetch(context.Background(), job, nil)

	if len(rec.lastReq.Exclude) != 1 || rec.lastReq.Exclude[0] != "Nude — Radiohead" {
		t.Errorf("Exclude = %v", rec.lastReq.Exclude)
	}
}
