package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates an in-memory store for testing
func createTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		store := createTestStore(t)
		if store.db == nil {
			t.Error("store database is nil")
		}
	})

	t.Run("file-based database", func(t *testing.T) {
		store, err := Open(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatalf("failed to open file-based store: %v", err)
		}
		defer func() { _ = store.Close() }()

		if store.db == nil {
			t.Error("store database is nil")
		}
	})
}

func TestAddAndRecent(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	for i, path := range []string{"/a.flac", "/b.flac", "/c.flac"} {
		_, err := store.Add(ctx, Entry{
			Path:     path,
			Title:    filepath.Base(path),
			Duration: 3 * time.Minute,
			PlayedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Add(%s): %v", path, err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2", len(recent))
	}
	if recent[0].Path != "/c.flac" || recent[1].Path != "/b.flac" {
		t.Errorf("order = %s, %s; want newest first", recent[0].Path, recent[1].Path)
	}
	if recent[0].Duration != 3*time.Minute {
		t.Errorf("Duration = %s", recent[0].Duration)
	}
	if !recent[0].PlayedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("PlayedAt = %s", recent[0].PlayedAt)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 3 {
		t.Errorf("Count = %d, %v; want 3", count, err)
	}
}

func TestAddRequiresPath(t *testing.T) {
	store := createTestStore(t)
	if _, err := store.Add(context.Background(), Entry{Title: "x"}); err == nil {
		t.Error("expected error for entry without path")
	}
}

func TestUpdateDetails(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, Entry{Path: "/stream"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.UpdateDetails(ctx, id, Entry{Title: "Radio", Artist: "DJ"}); err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}

	recent, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if recent[0].Title != "Radio" || recent[0].Artist != "DJ" {
		t.Errorf("entry = %+v", recent[0])
	}

	if err := store.UpdateDetails(ctx, id+100, Entry{}); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestCleanup(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, Entry{Path: "/old", PlayedAt: time.Now().Add(-30 * 24 * time.Hour)}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, Entry{Path: "/new"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	deleted, err := store.Cleanup(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}
