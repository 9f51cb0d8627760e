package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/search"
	"github.com/okarvonen/scholarscout/internal/sources"
	"github.com/okarvonen/scholarscout/internal/store"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockBibSource implements sources.BibSource for HTTP handler tests.
type mockBibSource struct {
	searchFn func(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error)
}

func (m *mockBibSource) Name() string { return "mock" }

func (m *mockBibSource) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, params)
	}
	return &sources.SearchResult{Articles: []domain.Article{}}, nil
}

// mockResolver implements search.LevelResolver, mapping journal names to
// fixed levels.
type mockResolver struct {
	levels map[string]int
}

func (m *mockResolver) Resolve(_ context.Context, journal string) *int {
	if level, ok := m.levels[journal]; ok {
		return &level
	}
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type testEnv struct {
	server       *Server
	blobs        *blobstore.MemStore
	resultStore  *store.ResultStore
	projectStore *store.ProjectStore
}

// newTestEnv creates a Server over an in-memory blob store with mocked
// search dependencies.
func newTestEnv(src sources.BibSource, resolver search.LevelResolver, budget time.Duration) *testEnv {
	logger := zerolog.Nop()
	blobs := blobstore.NewMemStore()
	resultStore := store.NewResultStore(blobs, logger)
	projectStore := store.NewProjectStore(blobs, logger)
	searcher := search.NewSearcher(src, 2*time.Second, logger)
	processor := search.NewProcessor(searcher, resolver, 5, time.Second, logger, nil)

	server := NewServer(Config{
		RequestBudget:   budget,
		InitialPageSize: 10,
		MorePageSize:    10,
	}, processor, resultStore, projectStore, blobs, src, nil, logger)

	return &testEnv{
		server:       server,
		blobs:        blobs,
		resultStore:  resultStore,
		projectStore: projectStore,
	}
}

// serveHTTP dispatches a request through the server's router and returns
// the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, r)
	return rr
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func levelPtr(level int) *int { return &level }

func sampleArticles() []domain.Article {
	return []domain.Article{
		{
			Title:   "Attention Is All You Need",
			Link:    "https://doi.org/10.1000/attn",
			Journal: "Nature",
			Year:    "2017",
			RawInfo: "Vaswani, Ashish - Nature, 2017",
		},
		{
			Title:   "A Minor Note",
			Link:    "https://doi.org/10.1000/minor",
			Journal: "Obscure Gazette",
			Year:    "2019",
			RawInfo: "Obscure Gazette, 2019",
		},
	}
}

// ---------------------------------------------------------------------------
// Tests: startSearch
// ---------------------------------------------------------------------------

func TestStartSearch_Success(t *testing.T) {
	src := &mockBibSource{
		searchFn: func(_ context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
			return &sources.SearchResult{Articles: sampleArticles(), TotalResults: 2}, nil
		},
	}
	resolver := &mockResolver{levels: map[string]int{"Nature": 3}}
	env := newTestEnv(src, resolver, 5*time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search", `{"keywords":"transformers"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	decodeJSON(t, rr, &resp)

	if resp.Status != "success" {
		t.Errorf("expected status success, got %q", resp.Status)
	}
	if resp.Count != 2 {
		t.Errorf("expected count 2, got %d", resp.Count)
	}
	if resp.JufoCount != 1 {
		t.Errorf("expected jufo_count 1, got %d", resp.JufoCount)
	}
	if resp.HasMore {
		t.Error("expected has_more false for a short page")
	}
	if resp.NextOffset != 10 {
		t.Errorf("expected next_offset 10, got %d", resp.NextOffset)
	}
	if resp.Message == "" {
		t.Error("expected message to be set")
	}
	if resp.InitialResults[0].Level == nil || *resp.InitialResults[0].Level != 3 {
		t.Errorf("expected first article enriched to level 3, got %v", resp.InitialResults[0].Level)
	}

	// The first batch must be persisted as a snapshot.
	history, err := env.resultStore.History(context.Background())
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].Keywords != "transformers" {
		t.Errorf("expected history keywords transformers, got %q", history[0].Keywords)
	}
	if history[0].Count != 2 {
		t.Errorf("expected history count 2, got %d", history[0].Count)
	}
}

func TestStartSearch_FullPageHasMore(t *testing.T) {
	page := make([]domain.Article, 10)
	for i := range page {
		page[i] = domain.Article{
			Title:   "Paper",
			Link:    "https://doi.org/10.1000/p" + string(rune('a'+i)),
			Journal: "Nature",
			Year:    "2020",
		}
	}
	src := &mockBibSource{
		searchFn: func(_ context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
			return &sources.SearchResult{Articles: page, TotalResults: 100}, nil
		},
	}
	env := newTestEnv(src, &mockResolver{}, 5*time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search", `{"keywords":"deep learning"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	decodeJSON(t, rr, &resp)
	if !resp.HasMore {
		t.Error("expected has_more true for a full page")
	}
}

func TestStartSearch_MissingKeywords(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search", `{"keywords":""}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "Keywords are required" {
		t.Errorf("expected error 'Keywords are required', got %q", resp["error"])
	}
}

func TestStartSearch_EmptyBody(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search", ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "No data provided" {
		t.Errorf("expected error 'No data provided', got %q", resp["error"])
	}
}

func TestStartSearch_BudgetExceeded(t *testing.T) {
	src := &mockBibSource{
		searchFn: func(ctx context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	env := newTestEnv(src, &mockResolver{}, 50*time.Millisecond)

	rr := serveHTTP(env.server, postJSON("/api/search", `{"keywords":"slow query"}`))

	if rr.Code != http.StatusRequestTimeout {
		t.Fatalf("expected status 408, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp searchTimeoutResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "partial_success" {
		t.Errorf("expected status partial_success, got %q", resp.Status)
	}
	if resp.Count != 0 || len(resp.InitialResults) != 0 {
		t.Errorf("expected empty partial response, got count=%d", resp.Count)
	}
	if resp.HasMore {
		t.Error("expected has_more false on timeout")
	}
}

func TestStartSearch_SourceErrorDegradesToEmpty(t *testing.T) {
	src := &mockBibSource{
		searchFn: func(_ context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	env := newTestEnv(src, &mockResolver{}, 5*time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search", `{"keywords":"flaky"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	decodeJSON(t, rr, &resp)
	if resp.Count != 0 {
		t.Errorf("expected count 0, got %d", resp.Count)
	}
	if resp.HasMore {
		t.Error("expected has_more false")
	}
}

// ---------------------------------------------------------------------------
// Tests: moreResults
// ---------------------------------------------------------------------------

func TestMoreResults_MergesAndDeduplicates(t *testing.T) {
	existing := []domain.Article{
		{Title: "Known", Link: "https://doi.org/10.1000/known", Journal: "Nature", Year: "2020", Level: levelPtr(3)},
	}
	src := &mockBibSource{
		searchFn: func(_ context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
			return &sources.SearchResult{Articles: []domain.Article{
				{Title: "Known", Link: "https://doi.org/10.1000/known", Journal: "Nature", Year: "2020"},
				{Title: "Fresh", Link: "https://doi.org/10.1000/fresh", Journal: "Nature", Year: "2021"},
			}}, nil
		},
	}
	resolver := &mockResolver{levels: map[string]int{"Nature": 3}}
	env := newTestEnv(src, resolver, 5*time.Second)

	if _, err := env.resultStore.SaveResults(context.Background(), "ai", existing); err != nil {
		t.Fatalf("failed to seed results: %v", err)
	}

	rr := serveHTTP(env.server, postJSON("/api/search/more", `{"keywords":"ai","offset":10,"batch_size":10}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp moreResponse
	decodeJSON(t, rr, &resp)

	if len(resp.NewResults) != 1 || resp.NewResults[0].Title != "Fresh" {
		t.Fatalf("expected exactly the fresh article in new_results, got %+v", resp.NewResults)
	}
	if resp.Count != 2 {
		t.Errorf("expected combined count 2, got %d", resp.Count)
	}
	if resp.JufoCount != 2 {
		t.Errorf("expected jufo_count 2, got %d", resp.JufoCount)
	}
	if resp.NextOffset != 20 {
		t.Errorf("expected next_offset 20, got %d", resp.NextOffset)
	}

	// The merged, sorted set must be persisted as the newest snapshot.
	combined, found, err := env.resultStore.LatestResults(context.Background(), "ai")
	if err != nil || !found {
		t.Fatalf("expected stored combined results, found=%v err=%v", found, err)
	}
	if len(combined) != 2 {
		t.Fatalf("expected 2 stored articles, got %d", len(combined))
	}
	// Both are level 3; the newer year sorts first.
	if combined[0].Year != "2021" {
		t.Errorf("expected newest year first after sort, got %q", combined[0].Year)
	}
}

func TestMoreResults_BatchSizeCapped(t *testing.T) {
	var gotRows int
	src := &mockBibSource{
		searchFn: func(_ context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
			gotRows = params.Rows
			return &sources.SearchResult{Articles: []domain.Article{}}, nil
		},
	}
	env := newTestEnv(src, &mockResolver{}, 5*time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search/more", `{"keywords":"ai","offset":0,"batch_size":50}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotRows != 10 {
		t.Errorf("expected batch size capped to 10, got %d", gotRows)
	}
	var resp moreResponse
	decodeJSON(t, rr, &resp)
	if resp.NextOffset != 10 {
		t.Errorf("expected next_offset 10 with capped batch, got %d", resp.NextOffset)
	}
}

func TestMoreResults_BudgetExceeded(t *testing.T) {
	existing := []domain.Article{
		{Title: "Known", Link: "https://doi.org/10.1000/known", Journal: "Nature", Year: "2020"},
	}
	src := &mockBibSource{
		searchFn: func(ctx context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	env := newTestEnv(src, &mockResolver{}, 100*time.Millisecond)

	if _, err := env.resultStore.SaveResults(context.Background(), "slow", existing); err != nil {
		t.Fatalf("failed to seed results: %v", err)
	}

	rr := serveHTTP(env.server, postJSON("/api/search/more", `{"keywords":"slow","offset":10}`))

	if rr.Code != http.StatusRequestTimeout {
		t.Fatalf("expected status 408, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp moreTimeoutResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "partial_timeout" {
		t.Errorf("expected status partial_timeout, got %q", resp.Status)
	}
	if resp.Count != 1 {
		t.Errorf("expected count to report the stored set size 1, got %d", resp.Count)
	}
	if len(resp.NewResults) != 0 {
		t.Errorf("expected no new results on timeout, got %d", len(resp.NewResults))
	}
}

func TestMoreResults_MissingKeywords(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, postJSON("/api/search/more", `{"offset":10}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Tests: searchHealth
// ---------------------------------------------------------------------------

func TestSearchHealth(t *testing.T) {
	src := &mockBibSource{
		searchFn: func(_ context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
			return &sources.SearchResult{}, nil
		},
	}
	env := newTestEnv(src, &mockResolver{}, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/search/health", nil)
	rr := serveHTTP(env.server, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", resp["status"])
	}
	if resp["blob_storage"] != "connected" {
		t.Errorf("expected blob_storage connected, got %v", resp["blob_storage"])
	}
	if resp["external_api"] != "connected" {
		t.Errorf("expected external_api connected, got %v", resp["external_api"])
	}
}

func TestSearchHealth_SourceDown(t *testing.T) {
	src := &mockBibSource{
		searchFn: func(_ context.Context, _ sources.SearchParams) (*sources.SearchResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	env := newTestEnv(src, &mockResolver{}, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/search/health", nil)
	rr := serveHTTP(env.server, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["external_api"] != "error or timeout" {
		t.Errorf("expected external_api error marker, got %v", resp["external_api"])
	}
}
