package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	keywordsKey  contextKey = "keywords"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithKeywords adds the active search keywords to the context so nested
// components can attach them to log entries.
func WithKeywords(ctx context.Context, keywords string) context.Context {
	return context.WithValue(ctx, keywordsKey, keywords)
}

// KeywordsFromContext retrieves the active search keywords from context.
// Returns empty string if not present.
func KeywordsFromContext(ctx context.Context) string {
	if v := ctx.Value(keywordsKey); v != nil {
		if kw, ok := v.(string); ok {
			return kw
		}
	}
	return ""
}
