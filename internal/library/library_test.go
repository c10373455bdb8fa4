package library

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"radiofree/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, core.Track{ID: "t1", Title: "Seville", Artist: "Pinback", Album: "Blue Screen Life"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, core.Track{ID: "t2", Title: "Nude", Artist: "Radiohead"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	saved, err := s.List(ctx, VerdictSaved)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved count = %d, want 2", len(saved))
	}
}

func TestDislike(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	track := core.Track{ID: "t1", Title: "Seville", Artist: "Pinback"}
	if err := s.Dislike(ctx, track); err != nil {
		t.Fatalf("Dislike() error = %v", err)
	}

	disliked, err := s.IsDisliked(ctx, "t1")
	if err != nil {
		t.Fatalf("IsDisliked() error = %v", err)
	}
	if !disliked {
		t.Error("t1 should be disliked")
	}

	if disliked, _ := s.IsDisliked(ctx, "unknown"); disliked {
		t.Error("unknown track should not be disliked")
	}
}

func TestVerdictReplacement(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	track := core.Track{ID: "t1", Title: "Seville", Artist: "Pinback"}
	s.Dislike(ctx, track)
	s.Save(ctx, track)

	if disliked, _ := s.IsDisliked(ctx, "t1"); disliked {
		t.Error("saving should override an earlier dislike")
	}
	saved, _ := s.List(ctx, VerdictSaved)
	if len(saved) != 1 {
		t.Errorf("saved count = %d, want 1", len(saved))
	}
	disliked, _ := s.List(ctx, VerdictDisliked)
	if len(disliked) != 0 {
		t.Errorf("disliked count = %d, want 0", len(disliked))
	}
}
