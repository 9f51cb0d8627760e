// Package ranking resolves journal names to quality levels through the
// JUFO ranking source, with a persistent cache in the blob store.
package ranking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/observability"
)

// CacheKey is the blob store key holding the journal level cache.
const CacheKey = "jufo_cache"

// writeTimeout bounds one background cache write.
const writeTimeout = 5 * time.Second

type cacheWrite struct {
	journal string
	level   *int
}

// Cache is a write-behind cache of journal quality levels on top of the
// blob store. Reads hit the store synchronously; writes are queued and
// applied by a background goroutine so lookups never wait on persistence.
// When the queue is full the write is dropped, which only costs a repeat
// remote lookup later.
type Cache struct {
	store   blobstore.Store
	logger  zerolog.Logger
	metrics *observability.Metrics

	writes    chan cacheWrite
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewCache creates a cache and starts its background writer.
// queueSize bounds the number of pending writes.
func NewCache(store blobstore.Store, queueSize int, logger zerolog.Logger, metrics *observability.Metrics) *Cache {
	if queueSize <= 0 {
		queueSize = 256
	}

	c := &Cache{
		store:   store,
		logger:  logger.With().Str("component", "ranking_cache").Logger(),
		metrics: metrics,
		writes:  make(chan cacheWrite, queueSize),
	}

	c.wg.Add(1)
	go c.writeLoop()

	return c
}

// Lookup returns the cached level for a journal. The second return value
// reports whether the journal was present at all; a present journal with a
// nil level is a recorded miss and should not trigger a new remote lookup.
func (c *Cache) Lookup(ctx context.Context, journal string) (*int, bool) {
	levels, err := c.load(ctx)
	if err != nil {
		return nil, false
	}
	level, ok := levels[journal]
	return level, ok
}

// Put queues a cache write. It never blocks: when the queue is full the
// write is dropped and counted.
func (c *Cache) Put(journal string, level *int) {
	select {
	case c.writes <- cacheWrite{journal: journal, level: level}:
	default:
		if c.metrics != nil {
			c.metrics.CacheWritesDropped.Inc()
		}
		c.logger.Warn().Str("journal", journal).Msg("cache write queue full, dropping write")
	}
}

// Close stops the background writer after draining queued writes.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.writes)
	})
	c.wg.Wait()
}

func (c *Cache) writeLoop() {
	defer c.wg.Done()

	for w := range c.writes {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := c.apply(ctx, w); err != nil {
			c.logger.Warn().Err(err).Str("journal", w.journal).Msg("cache write failed")
		}
		cancel()
	}
}

// apply performs one read-modify-write of the cache blob. Concurrent
// writers of the same blob race and the last one wins; a lost write is a
// cache inefficiency, not a correctness problem.
func (c *Cache) apply(ctx context.Context, w cacheWrite) error {
	levels, err := c.load(ctx)
	if err != nil {
		return err
	}

	levels[w.journal] = w.level
	return c.store.Put(ctx, CacheKey, levels)
}

// load fetches the cache blob, treating an absent blob as empty.
func (c *Cache) load(ctx context.Context) (map[string]*int, error) {
	levels := make(map[string]*int)
	if err := c.store.Get(ctx, CacheKey, &levels); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return levels, nil
		}
		return nil, err
	}
	return levels, nil
}
