package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/search"
	"github.com/okarvonen/scholarscout/internal/sources"
)

const (
	timeoutAdvice = "The search is taking longer than expected. Try a more specific query."

	// maxArticlesCap bounds the max_articles request field.
	maxArticlesCap = 100
)

type batchOutcome struct {
	articles     []domain.Article
	hasMore      bool
	qualityCount int
}

// runBatch executes one search-and-enrich batch under the request budget.
// The second return value is false when the budget ran out first; the
// batch goroutine is abandoned and its result discarded.
func (s *Server) runBatch(ctx context.Context, keywords string, offset, limit int, yearRange string, targetQuality int) (batchOutcome, bool) {
	done := make(chan batchOutcome, 1)
	go func() {
		articles, hasMore, qualityCount := s.processor.ProcessBatch(ctx, keywords, offset, limit, yearRange, targetQuality)
		done <- batchOutcome{articles: articles, hasMore: hasMore, qualityCount: qualityCount}
	}()

	select {
	case outcome := <-done:
		return outcome, true
	case <-ctx.Done():
		return batchOutcome{}, false
	}
}

// startSearch handles POST /api/search: fetch and enrich the first page,
// persist a snapshot, and tell the client whether to keep paging.
func (s *Server) startSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if msg, ok := decodeJSONBody(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Keywords are required")
		return
	}
	if req.YearRange == "" {
		req.YearRange = "all"
	}
	if req.MaxArticles > maxArticlesCap {
		req.MaxArticles = maxArticlesCap
	}

	if s.metrics != nil {
		s.metrics.SearchesStarted.Inc()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestBudget)
	defer cancel()

	outcome, ok := s.runBatch(ctx, req.Keywords, 0, s.cfg.InitialPageSize, req.YearRange, req.TargetJufo)
	if !ok {
		s.logger.Warn().Str("keywords", req.Keywords).Msg("search timed out")
		if s.metrics != nil {
			s.metrics.SearchesPartial.Inc()
		}
		writeJSON(w, http.StatusRequestTimeout, searchTimeoutResponse{
			Status:         "partial_success",
			Error:          timeoutAdvice,
			InitialResults: []domain.Article{},
		})
		return
	}

	if _, err := s.resultStore.SaveResults(ctx, req.Keywords, outcome.articles); err != nil {
		s.logger.Error().Err(err).Str("keywords", req.Keywords).Msg("failed to save search results")
		writeError(w, http.StatusInternalServerError, "failed to save search results")
		return
	}

	if s.metrics != nil {
		s.metrics.SearchesCompleted.Inc()
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Status:         "success",
		InitialResults: outcome.articles,
		Count:          len(outcome.articles),
		JufoCount:      outcome.qualityCount,
		HasMore:        outcome.hasMore,
		NextOffset:     s.cfg.InitialPageSize,
		Message:        "First batch of results loaded. Continue fetching more.",
	})
}

// moreResults handles POST /api/search/more: fetch the next page, merge it
// into the stored set, re-sort, and persist a new snapshot.
func (s *Server) moreResults(w http.ResponseWriter, r *http.Request) {
	var req moreRequest
	if msg, ok := decodeJSONBody(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Keywords are required")
		return
	}
	if req.YearRange == "" {
		req.YearRange = "all"
	}
	batchSize := req.BatchSize
	if batchSize <= 0 || batchSize > s.cfg.MorePageSize {
		batchSize = s.cfg.MorePageSize
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestBudget)
	defer cancel()

	existing, found, err := s.resultStore.LatestResults(ctx, req.Keywords)
	if err != nil {
		s.logger.Error().Err(err).Str("keywords", req.Keywords).Msg("failed to load stored results")
		writeError(w, http.StatusInternalServerError, "failed to load stored results")
		return
	}
	if !found {
		s.logger.Warn().Str("keywords", req.Keywords).Msg("no existing results found")
		existing = []domain.Article{}
	}

	outcome, ok := s.runBatch(ctx, req.Keywords, req.Offset, batchSize, req.YearRange, req.TargetJufo)
	if !ok {
		s.logger.Warn().
			Str("keywords", req.Keywords).
			Int("offset", req.Offset).
			Msg("search more timed out")
		if s.metrics != nil {
			s.metrics.SearchesPartial.Inc()
		}
		writeJSON(w, http.StatusRequestTimeout, moreTimeoutResponse{
			Status:     "partial_timeout",
			Error:      timeoutAdvice,
			NewResults: []domain.Article{},
			Count:      len(existing),
		})
		return
	}

	newResults := search.UniqueAdditions(existing, outcome.articles)
	combined := make([]domain.Article, 0, len(existing)+len(newResults))
	combined = append(combined, existing...)
	combined = append(combined, newResults...)
	jufoCount := search.CountHighQuality(combined)
	search.SortArticles(combined)

	if _, err := s.resultStore.SaveResults(ctx, req.Keywords, combined); err != nil {
		s.logger.Error().Err(err).Str("keywords", req.Keywords).Msg("failed to save merged results")
		writeError(w, http.StatusInternalServerError, "failed to save merged results")
		return
	}

	if s.metrics != nil {
		s.metrics.SearchesCompleted.Inc()
	}
	writeJSON(w, http.StatusOK, moreResponse{
		Status:     "success",
		NewResults: newResults,
		Count:      len(combined),
		JufoCount:  jufoCount,
		HasMore:    outcome.hasMore,
		NextOffset: req.Offset + batchSize,
	})
}

// searchHealth handles GET /api/search/health: a diagnostic probe of the
// history index, blob storage, and the upstream bibliographic source.
func (s *Server) searchHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	blobStatus := "connected"
	historyCount := 0
	history, err := s.resultStore.History(ctx)
	if err != nil {
		blobStatus = "error"
	} else {
		historyCount = len(history)
	}

	sourceStatus := "connected"
	probeCtx, probeCancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer probeCancel()
	if _, err := s.source.Search(probeCtx, sources.SearchParams{Query: "test", Rows: 1}); err != nil {
		s.logger.Warn().Err(err).Msg("bibliographic source probe failed")
		sourceStatus = "error or timeout"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"message":       "Search API is functioning correctly",
		"history_count": historyCount,
		"blob_storage":  blobStatus,
		"external_api":  sourceStatus,
	})
}
