// Package history keeps the append-only session log, the repeat guard, and
// the session-wide seen index.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"radiofree/internal/core"
)

// Log is the session history. Entries live in memory for the lifetime of the
// session and are mirrored to a JSONL file when a path is configured. The
// in-memory slice is authoritative: a failed file write degrades persistence,
// never reads.
type Log struct {
	logger *zap.Logger

	mu      sync.RWMutex
	entries []core.HistoryEntry
	file    *os.File
	enc     *json.Encoder
}

// Open loads any existing JSONL log at path and opens it for appending.
// A missing file means an empty history. An empty path disables persistence.
func Open(path string, logger *zap.Logger) (*Log, error) {
	l := &Log{logger: logger}

	if path == "" {
		return l, nil
	}

	if err := l.load(path); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open history log: %w", err)
	}
	l.file = file
	l.enc = json.NewEncoder(file)

	logger.Info("History loaded",
		zap.String("path", path),
		zap.Int("entries", len(l.entries)))

	return l, nil
}

func (l *Log) load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read history log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry core.HistoryEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			// A corrupt line loses that entry, not the session.
			l.logger.Warn("Skipping corrupt history line", zap.Error(err))
			continue
		}
		l.entries = append(l.entries, entry)
	}
	return scanner.Err()
}

// Record appends an entry. The in-memory append always takes effect; the
// returned error reports a persistence failure only.
func (l *Log) Record(entry core.HistoryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)

	if l.enc == nil {
		return nil
	}
	if err := l.enc.Encode(entry); err != nil {
		l.logger.Error("History write failed",
			zap.String("track", entry.Track.Label()),
			zap.Error(err))
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return nil
}

// IsRecent reports whether trackID appears among the last window entries
// whose action is played or queued. Liked and disliked entries do not count
// against the window.
func (l *Log) IsRecent(trackID string, window int) bool {
	if trackID == "" || window <= 0 {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := 0
	for i := len(l.entries) - 1; i >= 0 && seen < window; i-- {
		e := l.entries[i]
		if e.Action != core.ActionPlayed && e.Action != core.ActionQueued {
			continue
		}
		if e.Track.ID == trackID {
			return true
		}
		seen++
	}
	return false
}

// Recent returns at most window entries, most-recent-last.
func (l *Log) Recent(window int) []core.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if window <= 0 || len(l.entries) == 0 {
		return nil
	}
	start := len(l.entries) - window
	if start < 0 {
		start = 0
	}
	out := make([]core.HistoryEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Size returns the number of entries recorded this session plus any loaded
// from disk.
func (l *Log) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Close flushes and closes the backing file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.enc = nil
	return err
}
