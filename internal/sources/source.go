package sources

import (
	"context"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// SearchParams defines the parameters for a bibliographic search.
type SearchParams struct {
	// Query is the keyword query string (required).
	Query string

	// Rows limits the number of records returned in a single request.
	// A value of 0 uses the source's default page size.
	Rows int

	// Offset specifies the starting position for paginated results.
	Offset int
}

// SearchResult contains the results from a bibliographic search.
type SearchResult struct {
	// Articles contains the records returned by the search, mapped to the
	// internal article shape. May be empty.
	Articles []domain.Article

	// TotalResults is the total number of records matching the query as
	// reported by the source. May be an estimate.
	TotalResults int
}

// BibSource is the interface implemented by bibliographic search backends.
type BibSource interface {
	// Name returns a short identifier for the source ("crossref").
	Name() string

	// Search executes a keyword search and maps the response to articles.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
}
