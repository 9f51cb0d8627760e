// Package crossref implements the bibliographic source backed by the
// Crossref REST API.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/sources"
)

const (
	// DefaultBaseURL is the default Crossref API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout. Crossref can be slow
	// under load; the short timeout keeps search pages responsive and a
	// timed-out page is treated as empty by the caller.
	DefaultTimeout = 5 * time.Second

	// DefaultRows is the default page size per request.
	DefaultRows = 20

	// selectFields restricts the response to the fields the article
	// mapping reads. Smaller payloads, faster pages.
	selectFields = "DOI,title,container-title,issued"

	// doiPrefix is the URL prefix for resolving DOIs.
	doiPrefix = "https://doi.org/"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL.
	// Defaults to https://api.crossref.org
	BaseURL string

	// MailTo is the contact email for the polite pool.
	// See: https://api.crossref.org/swagger-ui/index.html
	MailTo string

	// Timeout is the request timeout. Defaults to 5 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 10.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to 10.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client implements the sources.BibSource interface for Crossref.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.BibSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := "ScholarScout/1.0"
	if cfg.MailTo != "" {
		userAgent += " (mailto:" + cfg.MailTo + ")"
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: userAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Crossref client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return "crossref"
}

// Search queries the Crossref /works endpoint and maps each record to an
// article. Records with missing fields get placeholder values instead of
// failing the page; a malformed record is skipped, never the whole page.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			"Crossref",
			resp.StatusCode,
			string(body),
			statusCause(resp.StatusCode),
		)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var worksResp worksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&worksResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	articles := make([]domain.Article, 0, len(worksResp.Message.Items))
	for _, item := range worksResp.Message.Items {
		articles = append(articles, workToArticle(&item))
	}

	return &sources.SearchResult{
		Articles:     articles,
		TotalResults: worksResp.Message.TotalResults,
	}, nil
}

// statusCause maps an upstream status code to the matching sentinel so
// callers can distinguish throttling from outages with errors.Is.
func statusCause(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status >= http.StatusInternalServerError:
		return domain.ErrServiceUnavailable
	default:
		return nil
	}
}

// buildSearchURL constructs the /works API URL with query parameters.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	rows := params.Rows
	if rows == 0 {
		rows = DefaultRows
	}

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("rows", strconv.Itoa(rows))
	query.Set("offset", strconv.Itoa(params.Offset))
	query.Set("select", selectFields)
	if c.config.MailTo != "" {
		query.Set("mailto", c.config.MailTo)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// workToArticle maps a Crossref record to the internal article shape.
func workToArticle(item *work) domain.Article {
	title := domain.NoTitle
	if len(item.Title) > 0 && item.Title[0] != "" {
		title = item.Title[0]
	}

	link := domain.NoLink
	if item.DOI != "" {
		link = doiPrefix + item.DOI
	}

	journal := domain.UnknownJournal
	if len(item.ContainerTitle) > 0 && item.ContainerTitle[0] != "" {
		journal = item.ContainerTitle[0]
	}

	year := domain.YearNA
	if y := item.Issued.year(); y != "" {
		year = y
	}

	// The select parameter omits authors, so this is usually empty.
	authorInfo := ""
	if len(item.Authors) > 0 {
		first := item.Authors[0]
		if first.Family != "" || first.Given != "" {
			authorInfo = first.Family + ", " + first.Given
		}
	}

	rawInfo := fmt.Sprintf("%s, %s", journal, year)
	if authorInfo != "" {
		rawInfo = fmt.Sprintf("%s - %s, %s", authorInfo, journal, year)
	}

	return domain.Article{
		Title:   title,
		Link:    link,
		Journal: journal,
		Year:    year,
		RawInfo: rawInfo,
	}
}
