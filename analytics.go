package flagvault

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const AnalyticsFlushIntervalInMilli = 10 * 1000

type analyticsDataStore struct {
	mu   sync.Mutex
	data map[string]int
}

// AnalyticsProcessor accumulates per-flag evaluation counts and periodically
// flushes them to an HTTP endpoint.
type AnalyticsProcessor struct {
	client   *resty.Client
	store    *analyticsDataStore
	endpoint string
	log      *slog.Logger
}

// NewAnalyticsProcessor creates a processor and starts its flush loop, which
// runs until ctx is cancelled.
func NewAnalyticsProcessor(ctx context.Context, client *resty.Client, endpoint string, flushIntervalInMilli *int, log *slog.Logger) *AnalyticsProcessor {
	dataStore := analyticsDataStore{data: make(map[string]int)}
	tickerInterval := AnalyticsFlushIntervalInMilli
	if flushIntervalInMilli != nil {
		tickerInterval = *flushIntervalInMilli
	}
	processor := AnalyticsProcessor{
		client:   client,
		store:    &dataStore,
		endpoint: endpoint,
		log:      log,
	}
	go processor.start(ctx, tickerInterval)
	return &processor
}

func (a *AnalyticsProcessor) start(ctx context.Context, tickerInterval int) {
	ticker := time.NewTicker(time.Duration(tickerInterval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.log.Warn("failed to send analytics data", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Flush posts the accumulated counts and clears them on success. A flush with
// nothing accumulated is a no-op.
func (a *AnalyticsProcessor) Flush(ctx context.Context) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if len(a.store.data) == 0 {
		return nil
	}
	resp, err := a.client.R().SetContext(ctx).SetBody(a.store.data).Post(a.endpoint)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("AnalyticsProcessor.Flush received error response %d %s", resp.StatusCode(), resp.Status())
	}
	a.store.data = make(map[string]int)
	return nil
}

// TrackEvaluation records one evaluation of the named flag.
func (a *AnalyticsProcessor) TrackEvaluation(flagName string) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	a.store.data[flagName]++
}
