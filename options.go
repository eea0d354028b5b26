package flagvault

import (
	"context"
	"log/slog"

	"github.com/flagvault/flagvault-go/flagengine/flags"
)

type Option func(c *Client)

var _ = []Option{
	WithLogger(nil),
	WithFactory(flags.Factory{}),
	WithObserver(nil),
	WithWebhook(""),
	WithAnalytics(""),
	WithAnalyticsFlushInterval(0),
	WithContext(context.Background()),
}

// WithLogger sets the slog logger used by the client and its outbound HTTP.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithFactory replaces identifier and timestamp generation, which makes
// flag construction deterministic under test.
func WithFactory(factory flags.Factory) Option {
	return func(c *Client) {
		c.factory = factory
	}
}

// WithObserver registers an observer notified on create, update, delete and
// evaluate transitions.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

// WithWebhook registers a webhook observer posting every event to the
// given endpoint.
func WithWebhook(endpoint string) Option {
	return func(c *Client) {
		c.config.webhookEndpoint = endpoint
	}
}

// WithAnalytics enables per-flag evaluation counters, flushed periodically to
// the given endpoint.
func WithAnalytics(endpoint string) Option {
	return func(c *Client) {
		c.config.analyticsEndpoint = endpoint
	}
}

// WithAnalyticsFlushInterval overrides the analytics flush interval.
func WithAnalyticsFlushInterval(milliseconds int) Option {
	return func(c *Client) {
		if milliseconds > 0 {
			c.config.analyticsFlushInterval = &milliseconds
		}
	}
}

// WithContext bounds the lifetime of the client's background work (analytics
// flushing, webhook delivery).
func WithContext(ctx context.Context) Option {
	return func(c *Client) {
		c.ctx = ctx
	}
}
