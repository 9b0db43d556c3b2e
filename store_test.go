package folio

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/folio/content"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	s := setupTestStore(t)

	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []content.Entry{
		{ID: "p1", ContentType: "project", Fields: map[string]any{"title": "Poster", "slug": "poster"}},
		{ID: "p2", ContentType: "project", Fields: map[string]any{"title": "Book"}},
	}
	if err := s.SaveSnapshot("project", entries, fetched); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	snap, err := s.LoadSnapshot("project")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !snap.FetchedAt.Equal(fetched) {
		t.Fatalf("expected fetched_at %v, got %v", fetched, snap.FetchedAt)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}
	if snap.Entries[0].Fields["slug"] != "poster" {
		t.Fatalf("expected slug poster, got %v", snap.Entries[0].Fields["slug"])
	}
}

func TestSaveSnapshotReplaces(t *testing.T) {
	s := setupTestStore(t)

	now := time.Now()
	if err := s.SaveSnapshot("about", []content.Entry{{ID: "a"}}, now); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := s.SaveSnapshot("about", nil, now); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	snap, err := s.LoadSnapshot("about")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap.Entries == nil || len(snap.Entries) != 0 {
		t.Fatalf("expected empty non-nil entries, got %#v", snap.Entries)
	}
}

func TestLoadSnapshotNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.LoadSnapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSnapshots(t *testing.T) {
	s := setupTestStore(t)

	now := time.Now()
	s.SaveSnapshot("project", []content.Entry{{ID: "1"}, {ID: "2"}, {ID: "3"}}, now)
	s.SaveSnapshot("about", []content.Entry{{ID: "a"}}, now)

	infos, err := s.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(infos))
	}
	if infos[0].ContentType != "about" || infos[0].Count != 1 {
		t.Fatalf("unexpected first snapshot: %+v", infos[0])
	}
	if infos[1].ContentType != "project" || infos[1].Count != 3 {
		t.Fatalf("unexpected second snapshot: %+v", infos[1])
	}
}

func TestImageCache(t *testing.T) {
	s := setupTestStore(t)

	img := CachedImage{
		Key:         "800:https://images.ctfassets.net/a.png",
		Source:      "https://images.ctfassets.net/a.png",
		ContentType: "image/jpeg",
		Width:       800,
		Height:      600,
		Data:        []byte{0xff, 0xd8, 0xff},
	}
	if err := s.SaveImage(img); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	got, err := s.GetImage(img.Key)
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if got.Width != 800 || got.Height != 600 || string(got.Data) != string(img.Data) {
		t.Fatalf("unexpected image: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	if _, err := s.GetImage("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPruneImages(t *testing.T) {
	s := setupTestStore(t)

	now := time.Now()
	old := CachedImage{Key: "old", Source: "x", ContentType: "image/jpeg", Data: []byte{1}, CreatedAt: now.Add(-48 * time.Hour)}
	recent := CachedImage{Key: "new", Source: "x", ContentType: "image/jpeg", Data: []byte{1}, CreatedAt: now}
	s.SaveImage(old)
	s.SaveImage(recent)

	n, err := s.PruneImages(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PruneImages failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned image, got %d", n)
	}
	if _, err := s.GetImage("old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old image to be pruned, got %v", err)
	}
	if _, err := s.GetImage("new"); err != nil {
		t.Fatalf("expected new image to survive, got %v", err)
	}
}
