package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/observability"
)

const (
	// DefaultEnrichBatchSize bounds concurrent ranking lookups.
	DefaultEnrichBatchSize = 5

	// DefaultEnrichItemTimeout bounds one ranking lookup. On timeout the
	// article keeps a nil level and the batch moves on.
	DefaultEnrichItemTimeout = 3 * time.Second
)

// LevelResolver resolves a journal name to a quality level.
// *ranking.Resolver satisfies it.
type LevelResolver interface {
	Resolve(ctx context.Context, journal string) *int
}

// Processor runs the fetch-then-enrich step for one page of results.
type Processor struct {
	searcher    *Searcher
	resolver    LevelResolver
	batchSize   int
	itemTimeout time.Duration
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewProcessor creates a processor. Zero batchSize and itemTimeout fall
// back to the defaults. metrics may be nil.
func NewProcessor(searcher *Searcher, resolver LevelResolver, batchSize int, itemTimeout time.Duration, logger zerolog.Logger, metrics *observability.Metrics) *Processor {
	if batchSize <= 0 {
		batchSize = DefaultEnrichBatchSize
	}
	if itemTimeout == 0 {
		itemTimeout = DefaultEnrichItemTimeout
	}
	return &Processor{
		searcher:    searcher,
		resolver:    resolver,
		batchSize:   batchSize,
		itemTimeout: itemTimeout,
		logger:      logger.With().Str("component", "batch_processor").Logger(),
		metrics:     metrics,
	}
}

// ProcessBatch fetches one page of articles and enriches each with a
// quality level. It returns the enriched page, whether another page is
// worth fetching, and how many articles hit the high-quality set.
//
// hasMore is a heuristic: true when the page came back full and the
// quality target, if any, has not been reached. targetQuality <= 0 means
// no target.
func (p *Processor) ProcessBatch(ctx context.Context, query string, offset, limit int, yearRangeStr string, targetQuality int) ([]domain.Article, bool, int) {
	start := time.Now()
	logger := observability.WithSearchContext(p.logger, query, offset)

	results := p.searcher.Search(ctx, query, offset, limit, yearRangeStr)
	if p.metrics != nil {
		p.metrics.PagesFetched.Inc()
	}
	if len(results) == 0 {
		return []domain.Article{}, false, 0
	}

	enriched := p.enrich(ctx, results)

	qualityCount := CountHighQuality(enriched)

	hasMore := len(results) == limit
	if targetQuality > 0 && qualityCount >= targetQuality {
		hasMore = false
	}

	if p.metrics != nil {
		p.metrics.PageDuration.Observe(time.Since(start).Seconds())
	}
	logger.Info().
		Int("results", len(enriched)).
		Int("quality_count", qualityCount).
		Bool("has_more", hasMore).
		Dur("elapsed", time.Since(start)).
		Msg("batch processed")

	return enriched, hasMore, qualityCount
}

// enrich resolves levels in sub-batches so one slow journal cannot
// serialize the page. Each lookup gets its own deadline; on timeout the
// lookup is abandoned and the article keeps a nil level.
func (p *Processor) enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	enriched := make([]domain.Article, len(articles))
	copy(enriched, articles)

	for batchStart := 0; batchStart < len(enriched); batchStart += p.batchSize {
		batchEnd := batchStart + p.batchSize
		if batchEnd > len(enriched) {
			batchEnd = len(enriched)
		}

		type outcome struct {
			index int
			level *int
			timed bool
		}
		done := make(chan outcome, batchEnd-batchStart)

		for i := batchStart; i < batchEnd; i++ {
			go func(i int, journal string) {
				itemCtx, cancel := context.WithTimeout(ctx, p.itemTimeout)
				defer cancel()

				levelCh := make(chan *int, 1)
				go func() {
					levelCh <- p.resolver.Resolve(itemCtx, journal)
				}()

				select {
				case level := <-levelCh:
					done <- outcome{index: i, level: level}
				case <-itemCtx.Done():
					done <- outcome{index: i, level: nil, timed: true}
				}
			}(i, enriched[i].Journal)
		}

		for range enriched[batchStart:batchEnd] {
			o := <-done
			enriched[o.index].Level = o.level
			if o.timed {
				p.logger.Warn().Str("journal", enriched[o.index].Journal).Msg("ranking lookup timed out")
			}
			if p.metrics != nil {
				switch {
				case o.timed:
					p.metrics.ArticlesEnriched.WithLabelValues("timeout").Inc()
				case o.level != nil:
					p.metrics.ArticlesEnriched.WithLabelValues("ranked").Inc()
				default:
					p.metrics.ArticlesEnriched.WithLabelValues("unranked").Inc()
				}
			}
		}
	}

	return enriched
}
