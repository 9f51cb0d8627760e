package httpserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// maxRequestBodySize limits request body reads to 1MB.
const maxRequestBodySize = 1 << 20

var validate = validator.New()

// searchRequest is the body of POST /api/search.
type searchRequest struct {
	Keywords    string `json:"keywords" validate:"required"`
	MaxArticles int    `json:"max_articles"`
	TargetJufo  int    `json:"target_jufo"`
	YearRange   string `json:"year_range"`
}

// moreRequest is the body of POST /api/search/more.
type moreRequest struct {
	Keywords   string `json:"keywords" validate:"required"`
	Offset     int    `json:"offset"`
	BatchSize  int    `json:"batch_size"`
	TargetJufo int    `json:"target_jufo"`
	YearRange  string `json:"year_range"`
}

// searchResponse is the body of a successful POST /api/search.
type searchResponse struct {
	Status         string           `json:"status"`
	InitialResults []domain.Article `json:"initial_results"`
	Count          int              `json:"count"`
	JufoCount      int              `json:"jufo_count"`
	HasMore        bool             `json:"has_more"`
	NextOffset     int              `json:"next_offset"`
	Message        string           `json:"message,omitempty"`
}

// searchTimeoutResponse is the 408 body when the request budget ran out
// before the first batch completed.
type searchTimeoutResponse struct {
	Status         string           `json:"status"`
	Error          string           `json:"error"`
	InitialResults []domain.Article `json:"initial_results"`
	Count          int              `json:"count"`
	JufoCount      int              `json:"jufo_count"`
	HasMore        bool             `json:"has_more"`
}

// moreResponse is the body of a successful POST /api/search/more.
// Count reflects the combined stored set, not just the new page.
type moreResponse struct {
	Status     string           `json:"status"`
	NewResults []domain.Article `json:"new_results"`
	Count      int              `json:"count"`
	JufoCount  int              `json:"jufo_count"`
	HasMore    bool             `json:"has_more"`
	NextOffset int              `json:"next_offset"`
}

// moreTimeoutResponse is the 408 body when fetching the next page ran out
// of budget. Count still reports the size of the already stored set.
type moreTimeoutResponse struct {
	Status     string           `json:"status"`
	Error      string           `json:"error"`
	NewResults []domain.Article `json:"new_results"`
	Count      int              `json:"count"`
	HasMore    bool             `json:"has_more"`
}

// createProjectRequest is the body of POST /api/projects.
type createProjectRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// addSectionRequest is the body of POST /api/projects/{id}/sections.
type addSectionRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// addArticleRequest is the body of POST .../sections/{id}/articles.
type addArticleRequest struct {
	Title   string `json:"title" validate:"required"`
	Link    string `json:"link"`
	Journal string `json:"journal"`
	Year    string `json:"year"`
	Level   *int   `json:"level"`
}

// decodeJSONBody reads and decodes a JSON request body into dst. An empty
// body and malformed JSON are both client errors; field validation is left
// to the handler so the error message can name the missing field.
func decodeJSONBody(r *http.Request, dst interface{}) (string, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return "failed to read request body", false
	}
	if len(body) == 0 {
		return "No data provided", false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return "invalid JSON in request body", false
	}
	return "", true
}
