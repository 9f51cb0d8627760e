// Package search implements the incremental search-and-enrichment
// pipeline: fetch a page of bibliographic results, resolve a quality level
// for each, merge with previously fetched pages, and sort.
package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/observability"
	"github.com/okarvonen/scholarscout/internal/sources"
)

// DefaultSearchTimeout bounds one bibliographic page fetch.
const DefaultSearchTimeout = 6 * time.Second

// yearRange is a parsed year filter. A zero yearRange filters nothing.
type yearRange struct {
	active  bool
	start   int
	end     int
	bounded bool // end applies; "<start>-9999" is unbounded above
}

// parseYearRange parses "all" or "<start>-<end>" where an end of "9999"
// means unbounded. Malformed input disables the filter rather than failing
// the search.
func parseYearRange(s string) yearRange {
	if s == "all" || s == "" {
		return yearRange{}
	}

	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return yearRange{}
	}

	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return yearRange{}
	}

	if parts[1] == "9999" {
		return yearRange{active: true, start: start}
	}

	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return yearRange{}
	}

	return yearRange{active: true, start: start, end: end, bounded: true}
}

// contains reports whether a year string passes the filter. Non-numeric
// years are dropped when the filter is active.
func (r yearRange) contains(yearStr string) bool {
	if !r.active {
		return true
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return false
	}
	if year < r.start {
		return false
	}
	return !r.bounded || year <= r.end
}

// Searcher fetches one page of articles from the bibliographic source with
// a fixed deadline and an optional year filter.
type Searcher struct {
	source  sources.BibSource
	timeout time.Duration
	logger  zerolog.Logger
}

// NewSearcher creates a searcher. A zero timeout uses DefaultSearchTimeout.
func NewSearcher(source sources.BibSource, timeout time.Duration, logger zerolog.Logger) *Searcher {
	if timeout == 0 {
		timeout = DefaultSearchTimeout
	}
	return &Searcher{
		source:  source,
		timeout: timeout,
		logger:  logger.With().Str("component", "searcher").Logger(),
	}
}

// Search returns up to limit articles starting at offset, filtered by
// yearRangeStr. It fails soft: a slow or failing source yields an empty
// page, never an error. A page with zero results is a valid response.
func (s *Searcher) Search(ctx context.Context, query string, offset, limit int, yearRangeStr string) []domain.Article {
	filter := parseYearRange(yearRangeStr)

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := observability.WithSearchContext(s.logger, query, offset)

	result, err := s.source.Search(searchCtx, sources.SearchParams{
		Query:  query,
		Rows:   limit,
		Offset: offset,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("bibliographic search failed, returning empty page")
		return []domain.Article{}
	}

	if !filter.active {
		return result.Articles
	}

	filtered := make([]domain.Article, 0, len(result.Articles))
	for _, article := range result.Articles {
		if filter.contains(article.Year) {
			filtered = append(filtered, article)
		}
	}
	logger.Debug().
		Int("fetched", len(result.Articles)).
		Int("kept", len(filtered)).
		Msg("year filter applied")
	return filtered
}
