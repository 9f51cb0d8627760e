// Package jufo implements a client for the JUFO REST API, the Finnish
// national register of publication channel ratings.
//
// Channels are rated on levels 0 to 3; unrated channels have no level.
// Lookups go through etsi.php (search by name or ISSN) and kanava/<id>
// (channel detail carrying the level).
package jufo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okarvonen/scholarscout/internal/sources"
)

const (
	// DefaultBaseURL is the default JUFO REST API base URL.
	DefaultBaseURL = "https://jufo-rest.csc.fi/v1.1"

	// DefaultSearchTimeout is the default timeout for etsi.php lookups.
	DefaultSearchTimeout = 3 * time.Second

	// DefaultDetailTimeout is the default timeout for kanava lookups.
	DefaultDetailTimeout = 2 * time.Second

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// maxQueryLength truncates journal names before lookup. Longer names
	// are title strings misfiled as journals and never match anyway.
	maxQueryLength = 100
)

// Config holds configuration for the JUFO client.
type Config struct {
	// BaseURL is the JUFO REST API base URL.
	// Defaults to https://jufo-rest.csc.fi/v1.1
	BaseURL string

	// SearchTimeout is the timeout for name and ISSN searches.
	// Defaults to 3 seconds.
	SearchTimeout time.Duration

	// DetailTimeout is the timeout for channel detail lookups.
	// Defaults to 2 seconds.
	DetailTimeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to 5.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed. Defaults to 5.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.SearchTimeout == 0 {
		c.SearchTimeout = DefaultSearchTimeout
	}
	if c.DetailTimeout == 0 {
		c.DetailTimeout = DefaultDetailTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client queries the JUFO REST API.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// New creates a new JUFO client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.SearchTimeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new JUFO client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SearchCandidates tries lookup strategies in sequence and returns the
// first non-empty candidate list: exact name match, then wildcard name
// match, then ISSN when the query looks like one (at most 9 characters,
// containing a hyphen or all digits). The query is truncated to 100
// characters first. Returns (nil, "") when every strategy comes up empty.
// The second return value names the strategy that produced the hit.
func (c *Client) SearchCandidates(ctx context.Context, query string) ([]Candidate, string) {
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength]
	}

	if candidates := c.search(ctx, url.Values{"nimi": {query}}); len(candidates) > 0 {
		return candidates, "exact"
	}

	if candidates := c.search(ctx, url.Values{"nimi": {"*" + query + "*"}}); len(candidates) > 0 {
		return candidates, "wildcard"
	}

	if looksLikeISSN(query) {
		if candidates := c.search(ctx, url.Values{"issn": {query}}); len(candidates) > 0 {
			return candidates, "issn"
		}
	}

	return nil, ""
}

// Level fetches the rating level for a channel. Returns nil when the
// channel has no numeric level or the lookup fails. Lookup failures are
// soft: an unreachable ranking API degrades results, it must not fail them.
func (c *Client) Level(ctx context.Context, jufoID string) *int {
	if jufoID == "" {
		return nil
	}

	detailCtx, cancel := context.WithTimeout(ctx, c.config.DetailTimeout)
	defer cancel()

	detailURL := fmt.Sprintf("%s/kanava/%s", c.config.BaseURL, url.PathEscape(jufoID))
	req, err := http.NewRequestWithContext(detailCtx, http.MethodGet, detailURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var details []channelDetail
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&details); err != nil {
		return nil
	}
	if len(details) == 0 {
		return nil
	}

	level, err := strconv.Atoi(details[0].Level)
	if err != nil {
		return nil
	}
	return &level
}

// search runs one etsi.php query. Errors and non-list responses collapse
// to an empty result so the strategy ladder can move on.
func (c *Client) search(ctx context.Context, params url.Values) []Candidate {
	searchCtx, cancel := context.WithTimeout(ctx, c.config.SearchTimeout)
	defer cancel()

	searchURL := fmt.Sprintf("%s/etsi.php?%s", c.config.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(searchCtx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var candidates []Candidate
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&candidates); err != nil {
		return nil
	}
	return candidates
}

// looksLikeISSN reports whether a query could plausibly be an ISSN.
func looksLikeISSN(query string) bool {
	if len(query) > 9 {
		return false
	}
	hasHyphen := false
	allDigits := len(query) > 0
	for _, r := range query {
		if r == '-' {
			hasHyphen = true
		}
		if r < '0' || r > '9' {
			allDigits = false
		}
	}
	return hasHyphen || allDigits
}
