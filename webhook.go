package flagvault

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier is an Observer that posts each event as JSON to a
// configured endpoint. Delivery failures are logged, never surfaced: losing
// a notification must not fail the store operation that produced it.
type WebhookNotifier struct {
	client   *resty.Client
	endpoint string
	log      *slog.Logger
	ctx      context.Context
}

// NewWebhookNotifier creates a notifier posting to the given endpoint.
func NewWebhookNotifier(ctx context.Context, endpoint string, log *slog.Logger) *WebhookNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookNotifier{
		client:   newRestyClient(log),
		endpoint: endpoint,
		log:      log,
		ctx:      ctx,
	}
}

func (w *WebhookNotifier) Notify(event Event) {
	resp, err := w.client.R().SetContext(w.ctx).SetBody(event).Post(w.endpoint)
	if err != nil {
		w.log.Warn("failed to deliver webhook", "error", err, "event", string(event.Type))
		return
	}
	if resp.IsError() {
		w.log.Warn("webhook endpoint returned error response",
			slog.Int("status", resp.StatusCode()),
			slog.String("event", string(event.Type)),
		)
	}
}
