package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okarvonen/scholarscout/internal/observability"
)

// correlationIDMiddleware propagates a correlation ID for each request.
// An incoming X-Correlation-ID header is honored; otherwise the chi
// request ID is used. The ID is stored in the request context and echoed
// back in the response header.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}

		ctx := observability.WithRequestID(r.Context(), correlationID)
		w.Header().Set("X-Correlation-ID", correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// jsonContentTypeMiddleware rejects non-JSON request bodies on mutating
// methods.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && contentType != "application/json" &&
				!hasJSONPrefix(contentType) {
				writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func hasJSONPrefix(contentType string) bool {
	const prefix = "application/json;"
	return len(contentType) >= len(prefix) && contentType[:len(prefix)] == prefix
}
