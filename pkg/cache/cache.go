package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/metrics"
	"github.com/cuemby/portal/pkg/storage"
	"github.com/cuemby/portal/pkg/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the number of scopes kept when no size is configured
const DefaultSize = 1024

// Notifier fans scope evictions out to other processes sharing the store
type Notifier interface {
	// Publish announces that scope changed in this process
	Publish(ctx context.Context, scope string) error

	// Listen delivers scopes changed by other processes until Close
	Listen(ctx context.Context, fn func(scope string)) error

	Close() error
}

// Option configures a Cache
type Option func(*Cache)

// WithSize bounds the number of cached scopes
func WithSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithNotifier enables cross-process invalidation
func WithNotifier(n Notifier) Option {
	return func(c *Cache) {
		c.notifier = n
	}
}

// Cache holds one immutable Snapshot per scope. Snapshots are shared
// between callers and must not be modified; use Editable for a private
// copy.
type Cache struct {
	store    storage.Store
	size     int
	notifier Notifier
	logger   zerolog.Logger

	snapshots *lru.Cache[string, *Snapshot]
	group     singleflight.Group

	// gens holds the generation of recently invalidated scopes. A scope
	// missing from gens is at floor, which only grows as gens evicts.
	mu    sync.Mutex
	gens  *lru.Cache[string, uint64]
	next  uint64
	floor uint64
}

// New creates a cache reading through store
func New(store storage.Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:  store,
		size:   DefaultSize,
		logger: log.WithComponent("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}

	snapshots, err := lru.New[string, *Snapshot](c.size)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	gens, err := lru.NewWithEvict[string, uint64](c.size*4, func(_ string, gen uint64) {
		if gen > c.floor {
			c.floor = gen
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation table: %w", err)
	}
	c.snapshots = snapshots
	c.gens = gens

	if c.notifier != nil {
		if err := c.notifier.Listen(context.Background(), c.remoteInvalidate); err != nil {
			return nil, fmt.Errorf("failed to start invalidation listener: %w", err)
		}
	}
	return c, nil
}

// Close stops the notifier, if any
func (c *Cache) Close() error {
	if c.notifier != nil {
		return c.notifier.Close()
	}
	return nil
}

func (c *Cache) generation(scope string) uint64 {
	if gen, ok := c.gens.Peek(scope); ok {
		return gen
	}
	return c.floor
}

// Get returns the snapshot of scope. Inside a transaction the scope is read
// through it and nothing is cached, so uncommitted rows never leak to other
// callers.
func (c *Cache) Get(ctx context.Context, scope string) (*Snapshot, error) {
	if storage.InTransaction(ctx) {
		return c.load(ctx, scope)
	}

	if snap, ok := c.snapshots.Get(scope); ok {
		metrics.CacheHits.Inc()
		return snap, nil
	}
	metrics.CacheMisses.Inc()

	c.mu.Lock()
	gen := c.generation(scope)
	c.mu.Unlock()

	key := fmt.Sprintf("%s\x00%d", scope, gen)
	ch := c.group.DoChan(key, func() (any, error) {
		snap, err := c.load(context.WithoutCancel(ctx), scope)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation(scope) == gen {
			c.snapshots.Add(scope, snap)
		} else {
			c.logger.Debug().Str("scope", scope).Msg("Scope changed during load, not caching")
		}
		return snap, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, scope string) (*Snapshot, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CacheLoadDuration)

	var (
		pages      []*types.Page
		placements []*types.Placement
	)
	err := c.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if pages, err = tx.ListPages(scope); err != nil {
			return err
		}
		placements, err = tx.ListPlacements(scope)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("scope", scope).
		Int("pages", len(pages)).
		Int("placements", len(placements)).
		Msg("Loaded scope")
	return newSnapshot(scope, pages, placements), nil
}

// Invalidate evicts scope and tells other processes to do the same. Writers
// register it as a commit hook.
func (c *Cache) Invalidate(scope string) {
	c.evict(scope, "commit")

	if c.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.notifier.Publish(ctx, scope); err != nil {
			c.logger.Warn().Err(err).Str("scope", scope).Msg("Failed to publish invalidation")
		}
	}()
}

func (c *Cache) remoteInvalidate(scope string) {
	c.evict(scope, "remote")
}

func (c *Cache) evict(scope, origin string) {
	c.mu.Lock()
	c.next++
	c.gens.Add(scope, c.next)
	removed := c.snapshots.Remove(scope)
	c.mu.Unlock()

	if removed {
		metrics.CacheEvictions.WithLabelValues(origin).Inc()
	}
	c.logger.Debug().Str("scope", scope).Str("origin", origin).Msg("Invalidated scope")
}

// Editable returns a private deep copy of one page with its placements
func (c *Cache) Editable(ctx context.Context, scope, pageID string) (*types.Page, error) {
	snap, err := c.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	page, ok := snap.Page(pageID)
	if !ok {
		return nil, types.PageNotFound(scope, pageID)
	}
	return page.Clone(), nil
}

// Len returns the number of cached scopes
func (c *Cache) Len() int {
	return c.snapshots.Len()
}
