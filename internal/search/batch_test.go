package search

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// fakeResolver maps journal names to levels, optionally hanging forever.
type fakeResolver struct {
	levels map[string]*int
	hang   bool
}

func (f *fakeResolver) Resolve(ctx context.Context, journal string) *int {
	if f.hang {
		<-ctx.Done()
		return nil
	}
	return f.levels[journal]
}

func articlesWithJournals(journals ...string) []domain.Article {
	articles := make([]domain.Article, len(journals))
	for i, j := range journals {
		articles[i] = domain.Article{Title: "T" + j, Journal: j, Year: "2020"}
	}
	return articles
}

func newTestProcessor(source *fakeBibSource, resolver LevelResolver) *Processor {
	searcher := NewSearcher(source, time.Second, zerolog.Nop())
	return NewProcessor(searcher, resolver, 2, 100*time.Millisecond, zerolog.Nop(), nil)
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("empty page returns immediately", func(t *testing.T) {
		processor := newTestProcessor(&fakeBibSource{}, &fakeResolver{})

		results, hasMore, count := processor.ProcessBatch(ctx, "q", 0, 10, "all", 0)
		assert.Empty(t, results)
		assert.False(t, hasMore)
		assert.Zero(t, count)
	})

	t.Run("enriches and counts high quality", func(t *testing.T) {
		two, three := 2, 3
		source := &fakeBibSource{articles: articlesWithJournals("A", "B", "C")}
		resolver := &fakeResolver{levels: map[string]*int{"A": &three, "B": &two}}
		processor := newTestProcessor(source, resolver)

		results, hasMore, count := processor.ProcessBatch(ctx, "q", 0, 10, "all", 0)
		assert.Len(t, results, 3)
		assert.Equal(t, 2, count)
		assert.False(t, hasMore) // page not full

		assert.Equal(t, 3, *results[0].Level)
		assert.Equal(t, 2, *results[1].Level)
		assert.Nil(t, results[2].Level)
	})

	t.Run("full page means has more", func(t *testing.T) {
		source := &fakeBibSource{articles: articlesWithJournals("A", "B", "C")}
		processor := newTestProcessor(source, &fakeResolver{})

		_, hasMore, _ := processor.ProcessBatch(ctx, "q", 0, 3, "all", 0)
		assert.True(t, hasMore)
	})

	t.Run("reaching quality target stops pagination", func(t *testing.T) {
		three := 3
		source := &fakeBibSource{articles: articlesWithJournals("A", "B", "C")}
		resolver := &fakeResolver{levels: map[string]*int{"A": &three, "B": &three}}
		processor := newTestProcessor(source, resolver)

		_, hasMore, count := processor.ProcessBatch(ctx, "q", 0, 3, "all", 2)
		assert.Equal(t, 2, count)
		assert.False(t, hasMore)
	})

	t.Run("unreached quality target keeps paginating", func(t *testing.T) {
		three := 3
		source := &fakeBibSource{articles: articlesWithJournals("A", "B", "C")}
		resolver := &fakeResolver{levels: map[string]*int{"A": &three}}
		processor := newTestProcessor(source, resolver)

		_, hasMore, count := processor.ProcessBatch(ctx, "q", 0, 3, "all", 5)
		assert.Equal(t, 1, count)
		assert.True(t, hasMore)
	})

	t.Run("hung resolver times out per item", func(t *testing.T) {
		source := &fakeBibSource{articles: articlesWithJournals("A", "B", "C", "D", "E")}
		processor := newTestProcessor(source, &fakeResolver{hang: true})

		start := time.Now()
		results, _, count := processor.ProcessBatch(ctx, "q", 0, 10, "all", 0)
		elapsed := time.Since(start)

		assert.Len(t, results, 5)
		assert.Zero(t, count)
		for _, a := range results {
			assert.Nil(t, a.Level)
		}
		// 5 items, sub-batches of 2, 100ms per-item budget. Items inside a
		// sub-batch time out concurrently.
		assert.Less(t, elapsed, 2*time.Second)
	})

	t.Run("timed-out search degrades to empty", func(t *testing.T) {
		source := &fakeBibSource{delay: time.Second}
		searcher := NewSearcher(source, 20*time.Millisecond, zerolog.Nop())
		processor := NewProcessor(searcher, &fakeResolver{}, 2, 100*time.Millisecond, zerolog.Nop(), nil)

		results, hasMore, count := processor.ProcessBatch(ctx, "q", 0, 10, "all", 0)
		assert.Empty(t, results)
		assert.False(t, hasMore)
		assert.Zero(t, count)
	})
}
