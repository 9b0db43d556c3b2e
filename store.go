package folio

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/folio/content"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the SQLite database holding the last good copy of every
// content type and the resized image cache.
type Store struct {
	db *sql.DB
}

// Snapshot is the last successful fetch of one content type.
type Snapshot struct {
	ContentType string
	Entries     []content.Entry
	FetchedAt   time.Time
}

// SnapshotInfo summarizes a snapshot without its entries.
type SnapshotInfo struct {
	ContentType string
	Count       int
	FetchedAt   time.Time
}

// CachedImage is a resized image produced by the image proxy.
type CachedImage struct {
	Key         string
	Source      string
	ContentType string
	Width       int
	Height      int
	Data        []byte
	CreatedAt   time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets page renders read snapshots while the revalidator writes.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
    content_type TEXT PRIMARY KEY,
    entries TEXT NOT NULL,
    entry_count INTEGER NOT NULL,
    fetched_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS image_cache (
    cache_key TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    content_type TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    data BLOB NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_image_cache_created ON image_cache(created_at);
`)
	return err
}

// SaveSnapshot replaces the stored entries for a content type.
func (s *Store) SaveSnapshot(contentType string, entries []content.Entry, fetchedAt time.Time) error {
	if entries == nil {
		entries = []content.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("folio: encode snapshot %s: %w", contentType, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO snapshots (content_type, entries, entry_count, fetched_at) VALUES (?, ?, ?, ?)`,
		contentType, string(data), len(entries), fetchedAt.UTC().Format(timeLayout))
	return err
}

// LoadSnapshot returns the stored entries for a content type, or
// ErrNotFound.
func (s *Store) LoadSnapshot(contentType string) (Snapshot, error) {
	var data, fetched string
	err := s.db.QueryRow(`SELECT entries, fetched_at FROM snapshots WHERE content_type = ?`, contentType).
		Scan(&data, &fetched)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{ContentType: contentType, FetchedAt: parseTime(fetched)}
	if err := json.Unmarshal([]byte(data), &snap.Entries); err != nil {
		return Snapshot{}, fmt.Errorf("folio: decode snapshot %s: %w", contentType, err)
	}
	return snap, nil
}

// ListSnapshots describes every stored snapshot ordered by content type.
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	rows, err := s.db.Query(`SELECT content_type, entry_count, fetched_at FROM snapshots ORDER BY content_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var fetched string
		if err := rows.Scan(&info.ContentType, &info.Count, &fetched); err != nil {
			return nil, err
		}
		info.FetchedAt = parseTime(fetched)
		out = append(out, info)
	}
	return out, rows.Err()
}

// GetImage returns a cached image by key, or ErrNotFound.
func (s *Store) GetImage(key string) (CachedImage, error) {
	img := CachedImage{Key: key}
	var created string
	err := s.db.QueryRow(`SELECT source, content_type, width, height, data, created_at FROM image_cache WHERE cache_key = ?`, key).
		Scan(&img.Source, &img.ContentType, &img.Width, &img.Height, &img.Data, &created)
	if err != nil {
		return CachedImage{}, err
	}
	img.CreatedAt = parseTime(created)
	return img, nil
}

// SaveImage upserts a cached image.
func (s *Store) SaveImage(img CachedImage) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO image_cache (cache_key, source, content_type, width, height, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.Key, img.Source, img.ContentType, img.Width, img.Height, img.Data, img.CreatedAt.UTC().Format(timeLayout))
	return err
}

// PruneImages deletes cached images created before cutoff and returns how
// many were removed.
func (s *Store) PruneImages(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM image_cache WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
