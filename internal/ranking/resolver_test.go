package ranking

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/sources/jufo"
)

// fakeSource is a scripted RankingSource.
type fakeSource struct {
	candidates []jufo.Candidate
	strategy   string
	levels     map[string]*int

	searchCalls int
	levelCalls  int
}

func (f *fakeSource) SearchCandidates(ctx context.Context, query string) ([]jufo.Candidate, string) {
	f.searchCalls++
	return f.candidates, f.strategy
}

func (f *fakeSource) Level(ctx context.Context, jufoID string) *int {
	f.levelCalls++
	return f.levels[jufoID]
}

func newTestResolver(t *testing.T, source *fakeSource, store blobstore.Store) (*Resolver, *Cache) {
	t.Helper()
	cache := NewCache(store, 8, zerolog.Nop(), nil)
	t.Cleanup(cache.Close)
	return NewResolver(source, cache, zerolog.Nop(), nil), cache
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty and unknown journals resolve to nil without lookups", func(t *testing.T) {
		source := &fakeSource{}
		resolver, _ := newTestResolver(t, source, blobstore.NewMemStore())

		assert.Nil(t, resolver.Resolve(ctx, ""))
		assert.Nil(t, resolver.Resolve(ctx, "Unknown"))
		assert.Zero(t, source.searchCalls)
	})

	t.Run("cache hit short-circuits remote lookup", func(t *testing.T) {
		store := blobstore.NewMemStore()
		three := 3
		require.NoError(t, store.Put(ctx, CacheKey, map[string]*int{"Nature": &three}))

		source := &fakeSource{}
		resolver, _ := newTestResolver(t, source, store)

		level := resolver.Resolve(ctx, "Nature")
		require.NotNil(t, level)
		assert.Equal(t, 3, *level)
		assert.Zero(t, source.searchCalls)
	})

	t.Run("recorded miss short-circuits remote lookup", func(t *testing.T) {
		store := blobstore.NewMemStore()
		require.NoError(t, store.Put(ctx, CacheKey, map[string]*int{"Obscure Gazette": nil}))

		source := &fakeSource{}
		resolver, _ := newTestResolver(t, source, store)

		assert.Nil(t, resolver.Resolve(ctx, "Obscure Gazette"))
		assert.Zero(t, source.searchCalls)
	})

	t.Run("good match fetches level and caches it", func(t *testing.T) {
		store := blobstore.NewMemStore()
		three := 3
		source := &fakeSource{
			candidates: []jufo.Candidate{
				{JufoID: "1", Name: "Natural History"},
				{JufoID: "2", Name: "Nature"},
			},
			strategy: "exact",
			levels:   map[string]*int{"2": &three},
		}
		resolver, cache := newTestResolver(t, source, store)

		level := resolver.Resolve(ctx, "Nature")
		require.NotNil(t, level)
		assert.Equal(t, 3, *level)
		assert.Equal(t, 1, source.levelCalls)

		cache.Close()
		cached, ok := cache.Lookup(ctx, "Nature")
		require.True(t, ok)
		require.NotNil(t, cached)
		assert.Equal(t, 3, *cached)
	})

	t.Run("weak match resolves to nil and records the miss", func(t *testing.T) {
		store := blobstore.NewMemStore()
		source := &fakeSource{
			candidates: []jufo.Candidate{{JufoID: "9", Name: "Completely Different Quarterly"}},
			strategy:   "wildcard",
		}
		resolver, cache := newTestResolver(t, source, store)

		assert.Nil(t, resolver.Resolve(ctx, "Nature"))
		assert.Zero(t, source.levelCalls)

		cache.Close()
		cached, ok := cache.Lookup(ctx, "Nature")
		assert.True(t, ok)
		assert.Nil(t, cached)
	})

	t.Run("no candidates records the miss", func(t *testing.T) {
		store := blobstore.NewMemStore()
		source := &fakeSource{}
		resolver, cache := newTestResolver(t, source, store)

		assert.Nil(t, resolver.Resolve(ctx, "Ghost Journal"))

		cache.Close()
		_, ok := cache.Lookup(ctx, "Ghost Journal")
		assert.True(t, ok)
	})
}
