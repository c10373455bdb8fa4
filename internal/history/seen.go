package history

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Seen is the session-wide index of every track label surfaced so far. It
// feeds prompt exclusion lists, so false positives only cost suggestion
// variety. The authoritative repeat guard is Log.IsRecent, not this index.
type Seen struct {
	mu    sync.RWMutex
	bloom *bloom.BloomFilter
	lru   *lru.Cache[string, struct{}]
}

// NewSeen creates a seen index bounded to max labels with the given bloom
// false positive rate. The LRU evicts the oldest label once max is exceeded.
func NewSeen(max int, falsePositiveRate float64) *Seen {
	if max <= 0 {
		max = 1
	}
	cache, _ := lru.New[string, struct{}](max)
	return &Seen{
		bloom: bloom.NewWithEstimates(uint(max), falsePositiveRate),
		lru:   cache,
	}
}

// Add records a track label.
func (s *Seen) Add(label string) {
	if label == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lru.Get(label); ok {
		return
	}
	s.bloom.AddString(label)
	s.lru.Add(label, struct{}{})
}

// Contains reports whether label was added this session and has not been
// evicted. The bloom filter fast-paths the negative case.
func (s *Seen) Contains(label string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.bloom.TestString(label) {
		return false
	}
	return s.lru.Contains(label)
}

// Labels returns every label currently indexed, oldest-first.
func (s *Seen) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Keys()
}

// Size returns the number of indexed labels.
func (s *Seen) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lru.Len()
}
