package db

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds a single store round trip when no other value
// is configured.
const DefaultQueryTimeout = 5 * time.Second

// WithTimeout derives a context for one store call. The parent context is
// the request context, so a client disconnect still cancels the query.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, d)
}
