package ranking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/observability"
	"github.com/okarvonen/scholarscout/internal/sources/jufo"
)

// matchThreshold is the minimum fuzzy ratio for accepting a ranking
// candidate as the queried journal.
const matchThreshold = 60

// RankingSource is the remote lookup surface the resolver needs.
// *jufo.Client satisfies it.
type RankingSource interface {
	SearchCandidates(ctx context.Context, query string) ([]jufo.Candidate, string)
	Level(ctx context.Context, jufoID string) *int
}

// Resolver resolves journal names to quality levels: cache first, then the
// ranking source with fuzzy matching against returned candidates. Every
// remote outcome, including a miss, is written back to the cache so the
// same journal is not queried twice.
type Resolver struct {
	source  RankingSource
	cache   *Cache
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(source RankingSource, cache *Cache, logger zerolog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		source:  source,
		cache:   cache,
		logger:  logger.With().Str("component", "ranking_resolver").Logger(),
		metrics: metrics,
	}
}

// Resolve returns the quality level for a journal, or nil when the journal
// is unknown, unranked, or the ranking source is unavailable. Resolve never
// returns an error: a missing level degrades a result, it must not fail one.
func (r *Resolver) Resolve(ctx context.Context, journal string) *int {
	if journal == "" || journal == domain.UnknownJournal {
		return nil
	}

	logger := observability.WithJournalContext(r.logger, journal)

	if level, ok := r.cache.Lookup(ctx, journal); ok {
		if r.metrics != nil {
			r.metrics.RankingCacheHits.Inc()
		}
		logger.Debug().Interface("level", level).Msg("ranking cache hit")
		return level
	}
	if r.metrics != nil {
		r.metrics.RankingCacheMisses.Inc()
	}

	start := time.Now()
	candidates, strategy := r.source.SearchCandidates(ctx, journal)
	if r.metrics != nil && strategy != "" {
		r.metrics.RankingLookups.WithLabelValues(strategy).Inc()
		r.metrics.RankingLookupDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	}

	if len(candidates) == 0 {
		logger.Debug().Msg("no ranking candidates")
		r.cache.Put(journal, nil)
		return nil
	}

	best, bestRatio := bestMatch(candidates, journal)
	logger.Debug().
		Str("match", best.Name).
		Int("ratio", bestRatio).
		Str("strategy", strategy).
		Msg("ranking candidate selected")

	if bestRatio <= matchThreshold {
		r.cache.Put(journal, nil)
		return nil
	}

	level := r.source.Level(ctx, best.JufoID)
	r.cache.Put(journal, level)
	return level
}

// bestMatch returns the candidate with the highest fuzzy ratio to the
// journal name.
func bestMatch(candidates []jufo.Candidate, journal string) (jufo.Candidate, int) {
	var best jufo.Candidate
	bestRatio := 0
	for _, candidate := range candidates {
		if ratio := Ratio(candidate.Name, journal); ratio > bestRatio {
			bestRatio = ratio
			best = candidate
		}
	}
	return best, bestRatio
}
