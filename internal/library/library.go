// Package library persists saved and disliked tracks in a local SQLite
// database, surviving across sessions.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"go.uber.org/zap"

	"radiofree/internal/core"
)

// Verdict marks how the user filed a track.
type Verdict string

const (
	VerdictSaved    Verdict = "saved"
	VerdictDisliked Verdict = "disliked"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	artist     TEXT NOT NULL,
	album      TEXT,
	verdict    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tracks_verdict ON tracks(verdict);
`

// Store implements core.Library on SQLite. A later verdict on the same
// track replaces the earlier one.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates the connection and runs the schema migration.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open library db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping library db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate library db: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save files a track as saved.
func (s *Store) Save(ctx context.Context, track core.Track) error {
	return s.file(ctx, track, VerdictSaved)
}

// Dislike files a track as disliked.
func (s *Store) Dislike(ctx context.Context, track core.Track) error {
	return s.file(ctx, track, VerdictDisliked)
}

func (s *Store) file(ctx context.Context, track core.Track, verdict Verdict) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (id, title, artist, album, verdict, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET verdict = excluded.verdict, updated_at = excluded.updated_at
	`, track.ID, track.Title, track.Artist, track.Album, string(verdict), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: library write: %v", core.ErrPersistence, err)
	}

	s.logger.Debug("Track filed",
		zap.String("track", track.Label()),
		zap.String("verdict", string(verdict)))
	return nil
}

// IsDisliked reports whether the track was filed as disliked.
func (s *Store) IsDisliked(ctx context.Context, trackID string) (bool, error) {
	var verdict string
	err := s.db.QueryRowContext(ctx,
		`SELECT verdict FROM tracks WHERE id = ?`, trackID).Scan(&verdict)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: library read: %v", core.ErrPersistence, err)
	}
	return verdict == string(VerdictDisliked), nil
}

// List returns all tracks filed with the given verdict, most recent first.
func (s *Store) List(ctx context.Context, verdict Verdict) ([]core.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, artist, IFNULL(album, '')
		FROM tracks WHERE verdict = ? ORDER BY updated_at DESC
	`, string(verdict))
	if err != nil {
		return nil, fmt.Errorf("%w: library read: %v", core.ErrPersistence, err)
	}
	defer rows.Close()

	var out []core.Track
	for rows.Next() {
		var t core.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album); err != nil {
			return nil, fmt.Errorf("%w: library scan: %v", core.ErrPersistence, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
