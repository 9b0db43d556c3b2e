package folio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/eringen/folio/content"
)

// ErrNotFound is returned when a requested snapshot or image does not exist.
var ErrNotFound = sql.ErrNoRows

// Repository is a source of raw CMS entries.
type Repository interface {
	FetchEntries(ctx context.Context, contentType string) ([]content.Entry, error)
}

// SharedCache is a second-level entry cache shared between instances.
// Get reports ok=false on a miss.
type SharedCache interface {
	Get(ctx context.Context, contentType string) (entries []content.Entry, ok bool, err error)
	Set(ctx context.Context, contentType string, entries []content.Entry) error
	Delete(ctx context.Context, contentType string) error
	Close() error
}

// CacheOptions configures a ContentCache. Only TTL is required.
type CacheOptions struct {
	TTL     time.Duration
	Store   *Store
	Shared  SharedCache
	Metrics *Metrics
	Logger  *zap.Logger
}

// ContentCache is an in-memory, per-content-type cache of CMS entries with
// TTL. Concurrent misses for one type share a single fetch. Reads never fail:
// when the repository errors the cache serves stale entries, then the last
// snapshot, then nothing.
type ContentCache struct {
	repo    Repository
	ttl     time.Duration
	store   *Store
	shared  SharedCache
	metrics *Metrics
	log     *zap.Logger
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	items map[string]*cacheItem
}

// cacheItem is immutable once stored; updates replace the pointer.
type cacheItem struct {
	entries []content.Entry
	fetched time.Time
	expired bool
}

// NewContentCache creates a ContentCache over repo.
func NewContentCache(repo Repository, opts CacheOptions) *ContentCache {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentCache{
		repo:    repo,
		ttl:     opts.TTL,
		store:   opts.Store,
		shared:  opts.Shared,
		metrics: opts.Metrics,
		log:     log.With(zap.String("module", "cache")),
		now:     time.Now,
		items:   make(map[string]*cacheItem),
	}
}

func (c *ContentCache) fresh(it *cacheItem) bool {
	return it != nil && !it.expired && c.now().Sub(it.fetched) < c.ttl
}

func (c *ContentCache) lookup(contentType string) *cacheItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[contentType]
}

func (c *ContentCache) put(contentType string, entries []content.Entry) {
	c.mu.Lock()
	c.items[contentType] = &cacheItem{entries: entries, fetched: c.now()}
	c.mu.Unlock()
}

// Entries returns the entries of a content type. The fetch, when one is
// needed, is detached from ctx cancellation so a client disconnect cannot
// poison the result shared with other waiters.
func (c *ContentCache) Entries(ctx context.Context, contentType string) []content.Entry {
	if it := c.lookup(contentType); c.fresh(it) {
		c.metrics.cacheOutcome(contentType, outcomeHit)
		return it.entries
	}
	v, _, _ := c.group.Do(contentType, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), contentType), nil
	})
	entries, _ := v.([]content.Entry)
	return entries
}

func (c *ContentCache) load(ctx context.Context, contentType string) []content.Entry {
	if it := c.lookup(contentType); c.fresh(it) {
		return it.entries
	}

	if c.shared != nil {
		entries, ok, err := c.shared.Get(ctx, contentType)
		if err != nil {
			c.log.Warn("shared cache read failed", zap.String("content_type", contentType), zap.Error(err))
		}
		if ok {
			c.put(contentType, entries)
			c.metrics.cacheOutcome(contentType, outcomeShared)
			return entries
		}
	}

	entries, err := c.fetch(ctx, contentType)
	if err == nil {
		c.metrics.cacheOutcome(contentType, outcomeMiss)
		return entries
	}
	c.log.Warn("content fetch failed", zap.String("content_type", contentType), zap.Error(err))

	if it := c.lookup(contentType); it != nil {
		// Keep serving the stale copy for another TTL before retrying.
		c.put(contentType, it.entries)
		c.metrics.cacheOutcome(contentType, outcomeStale)
		return it.entries
	}
	if c.store != nil {
		snap, serr := c.store.LoadSnapshot(contentType)
		switch {
		case serr == nil:
			c.put(contentType, snap.Entries)
			c.metrics.cacheOutcome(contentType, outcomeSnapshot)
			c.log.Info("serving snapshot",
				zap.String("content_type", contentType),
				zap.Time("fetched_at", snap.FetchedAt),
				zap.Int("entries", len(snap.Entries)),
			)
			return snap.Entries
		case !errors.Is(serr, ErrNotFound):
			c.log.Error("snapshot read failed", zap.String("content_type", contentType), zap.Error(serr))
		}
	}
	c.metrics.cacheOutcome(contentType, outcomeEmpty)
	return nil
}

// fetch reads from the repository and, on success, updates every layer.
func (c *ContentCache) fetch(ctx context.Context, contentType string) ([]content.Entry, error) {
	start := c.now()
	entries, err := c.repo.FetchEntries(ctx, contentType)
	c.metrics.observeFetch(contentType, err, c.now().Sub(start))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []content.Entry{}
	}
	c.put(contentType, entries)
	if c.shared != nil {
		if err := c.shared.Set(ctx, contentType, entries); err != nil {
			c.log.Warn("shared cache write failed", zap.String("content_type", contentType), zap.Error(err))
		}
	}
	if c.store != nil {
		if err := c.store.SaveSnapshot(contentType, entries, c.now()); err != nil {
			c.log.Error("snapshot write failed", zap.String("content_type", contentType), zap.Error(err))
		}
	}
	return entries, nil
}

// Refresh fetches a content type from the repository, bypassing every cache
// layer. Unlike Entries it reports failure and leaves cached data untouched.
func (c *ContentCache) Refresh(ctx context.Context, contentType string) error {
	_, err, _ := c.group.Do("refresh:"+contentType, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), contentType)
	})
	if err != nil {
		return fmt.Errorf("folio: refresh %s: %w", contentType, err)
	}
	return nil
}

// RefreshAll refreshes the given content types concurrently. Every type is
// attempted; the first failure is returned.
func (c *ContentCache) RefreshAll(ctx context.Context, contentTypes []string) error {
	var g errgroup.Group
	g.SetLimit(4)
	for _, ct := range contentTypes {
		g.Go(func() error {
			return c.Refresh(ctx, ct)
		})
	}
	return g.Wait()
}

// Invalidate marks a content type stale in memory and removes it from the
// shared cache, so the next read fetches fresh entries. Stale entries stay
// available as a fallback.
func (c *ContentCache) Invalidate(ctx context.Context, contentType string) {
	c.mu.Lock()
	if it, ok := c.items[contentType]; ok {
		c.items[contentType] = &cacheItem{entries: it.entries, fetched: it.fetched, expired: true}
	}
	c.mu.Unlock()
	if c.shared != nil {
		if err := c.shared.Delete(ctx, contentType); err != nil {
			c.log.Warn("shared cache delete failed", zap.String("content_type", contentType), zap.Error(err))
		}
	}
}

// InvalidateAll invalidates every known content type.
func (c *ContentCache) InvalidateAll(ctx context.Context) {
	seen := make(map[string]struct{})
	for _, ct := range content.AllTypes {
		seen[ct] = struct{}{}
	}
	c.mu.RLock()
	for ct := range c.items {
		seen[ct] = struct{}{}
	}
	c.mu.RUnlock()
	for ct := range seen {
		c.Invalidate(ctx, ct)
	}
}
