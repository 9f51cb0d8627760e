package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the search aggregator.
// Metrics are organized by subsystem: searches, ranking lookups, and blob
// storage. All collectors are registered via promauto with the default
// Prometheus registry.
type Metrics struct {
	// SearchesStarted counts search requests accepted by the pipeline.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts search requests that produced a full page.
	SearchesCompleted prometheus.Counter

	// SearchesPartial counts search requests that hit the request budget
	// and returned a partial response.
	SearchesPartial prometheus.Counter

	// PagesFetched counts bibliographic pages fetched from the source.
	PagesFetched prometheus.Counter

	// PageDuration observes the duration of one batch of the pipeline in seconds.
	PageDuration prometheus.Histogram

	// ArticlesEnriched counts articles run through ranking enrichment,
	// labeled by outcome ("ranked", "unranked", "timeout").
	ArticlesEnriched *prometheus.CounterVec

	// RankingCacheHits counts ranking cache hits (including recorded misses).
	RankingCacheHits prometheus.Counter

	// RankingCacheMisses counts ranking cache misses that triggered a
	// remote lookup.
	RankingCacheMisses prometheus.Counter

	// RankingLookups counts remote ranking-source queries, labeled by
	// strategy ("name", "wildcard", "issn", "detail").
	RankingLookups *prometheus.CounterVec

	// RankingLookupDuration observes remote ranking lookup duration in
	// seconds, labeled by strategy.
	RankingLookupDuration *prometheus.HistogramVec

	// CacheWritesDropped counts ranking cache writes dropped because the
	// background write queue was full.
	CacheWritesDropped prometheus.Counter

	// BlobOperations counts blob store operations, labeled by operation
	// ("put", "get", "delete", "list") and outcome ("ok", "error").
	BlobOperations *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of search requests started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of search requests completed",
		}),
		SearchesPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_partial_total",
			Help:      "Total number of search requests that returned a partial response",
		}),
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of bibliographic result pages fetched",
		}),
		PageDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Duration of one search-and-enrich batch in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ArticlesEnriched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_enriched_total",
			Help:      "Total number of articles run through ranking enrichment",
		}, []string{"outcome"}),
		RankingCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_cache_hits_total",
			Help:      "Total number of ranking cache hits",
		}),
		RankingCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_cache_misses_total",
			Help:      "Total number of ranking cache misses",
		}),
		RankingLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_lookups_total",
			Help:      "Total number of remote ranking source lookups",
		}, []string{"strategy"}),
		RankingLookupDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_lookup_duration_seconds",
			Help:      "Remote ranking lookup duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		CacheWritesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_cache_writes_dropped_total",
			Help:      "Total number of ranking cache writes dropped due to a full queue",
		}),
		BlobOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_operations_total",
			Help:      "Total number of blob store operations",
		}, []string{"op", "outcome"}),
	}
}
