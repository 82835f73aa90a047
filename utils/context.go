package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds list and detail reads against the database
	DefaultTimeout = 10 * time.Second

	// LongTimeout is for AI summaries and exports
	LongTimeout = 60 * time.Second

	// ShortTimeout is for health checks and cache maintenance
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context with long timeout for operations that may take longer
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithScrapeTimeout allows a full scrape on top of the database work around it.
func WithScrapeTimeout(parent context.Context, scrape time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, scrape+DefaultTimeout)
}
