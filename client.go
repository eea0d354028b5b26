package flagvault

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flagvault/flagvault-go/flagengine"
	"github.com/flagvault/flagvault-go/flagengine/flags"
)

type config struct {
	webhookEndpoint        string
	analyticsEndpoint      string
	analyticsFlushInterval *int
}

// Client is the entry point a transport layer talks to. It owns the flag
// repository and wires evaluation, observers and analytics together. The
// repository and engine stay usable on their own; the client only adds glue.
type Client struct {
	config    config
	repo      *Repository
	factory   flags.Factory
	log       *slog.Logger
	observers []Observer
	analytics *AnalyticsProcessor
	ctx       context.Context
}

// New creates a client with an empty repository.
func New(options ...Option) *Client {
	c := &Client{
		factory: flags.DefaultFactory(),
		log:     slog.Default(),
		ctx:     context.Background(),
	}

	for _, opt := range options {
		opt(c)
	}

	c.repo = NewRepository(c.factory)
	if c.config.webhookEndpoint != "" {
		c.observers = append(c.observers, NewWebhookNotifier(c.ctx, c.config.webhookEndpoint, c.log))
	}
	if c.config.analyticsEndpoint != "" {
		c.analytics = NewAnalyticsProcessor(c.ctx, newRestyClient(c.log), c.config.analyticsEndpoint, c.config.analyticsFlushInterval, c.log)
	}

	return c
}

// Factory returns the id/timestamp factory, for constructing rules that will
// be attached to this client's flags.
func (c *Client) Factory() flags.Factory {
	return c.factory
}

// Repository exposes the underlying store for callers that need direct
// access, e.g. snapshot tooling.
func (c *Client) Repository() *Repository {
	return c.repo
}

// CreateFlag constructs a flag from validated input and stores it. Rules keep
// the order they are passed in.
func (c *Client) CreateFlag(name, description string, enabled bool, rules ...flags.Rule) (*flags.FeatureFlag, error) {
	flag := flags.NewFlag(c.factory, name, description, enabled, rules...)
	stored, err := c.repo.Create(flag)
	if err != nil {
		return nil, err
	}
	c.log.Debug("flag created", "id", stored.ID, "name", stored.Name)
	c.notify(EventFlagCreated, stored, nil)
	return stored, nil
}

// GetFlag returns the flag with the given id or a NotFoundError.
func (c *Client) GetFlag(id string) (*flags.FeatureFlag, error) {
	flag := c.repo.FindByID(id)
	if flag == nil {
		return nil, NotFoundError{ID: id}
	}
	return flag, nil
}

// GetFlagByName returns the flag with the given name or a NotFoundError.
func (c *Client) GetFlagByName(name string) (*flags.FeatureFlag, error) {
	flag := c.repo.FindByName(name)
	if flag == nil {
		return nil, NotFoundError{ID: name}
	}
	return flag, nil
}

// UpdateFlag applies a partial update.
func (c *Client) UpdateFlag(id string, update FlagUpdate) (*flags.FeatureFlag, error) {
	updated, err := c.repo.Update(id, update)
	if err != nil {
		return nil, err
	}
	c.log.Debug("flag updated", "id", updated.ID, "name", updated.Name)
	c.notify(EventFlagUpdated, updated, nil)
	return updated, nil
}

// DeleteFlag removes a flag and reports whether it existed.
func (c *Client) DeleteFlag(id string) bool {
	flag := c.repo.FindByID(id)
	deleted := c.repo.Delete(id)
	if deleted {
		c.log.Debug("flag deleted", "id", id)
		c.notify(EventFlagDeleted, flag, nil)
	}
	return deleted
}

// AddRule appends a rule to a flag's evaluation order.
func (c *Client) AddRule(flagID string, rule flags.Rule) (*flags.FeatureFlag, error) {
	flag, err := c.GetFlag(flagID)
	if err != nil {
		return nil, err
	}
	working := flag.Clone()
	working.AddRule(rule, c.now())
	return c.UpdateFlag(flagID, FlagUpdate{Rules: working.Rules})
}

// RemoveRule removes a rule from a flag, preserving the order of the rest.
func (c *Client) RemoveRule(flagID, ruleID string) (*flags.FeatureFlag, error) {
	flag, err := c.GetFlag(flagID)
	if err != nil {
		return nil, err
	}
	working := flag.Clone()
	if !working.RemoveRule(ruleID, c.now()) {
		return nil, NotFoundError{ID: ruleID}
	}
	return c.UpdateFlag(flagID, FlagUpdate{Rules: working.Rules})
}

// ListFlags returns flags in insertion order, filtered and paginated.
func (c *Client) ListFlags(opts ListOptions) []*flags.FeatureFlag {
	return c.repo.List(opts)
}

// CountFlags returns the number of flags matching the search filter.
func (c *Client) CountFlags(search string) int {
	return c.repo.Count(search)
}

// FlagExists reports whether a flag is stored under the given id.
func (c *Client) FlagExists(id string) bool {
	return c.repo.Exists(id)
}

// Stats returns aggregate counts over the flag population.
func (c *Client) Stats() Stats {
	return c.repo.Stats()
}

// Evaluate decides whether a flag is active for the given context. It never
// fails; see flagengine.Evaluate.
func (c *Client) Evaluate(flag *flags.FeatureFlag, ec flags.EvaluationContext) flagengine.EvaluationResult {
	result := flagengine.Evaluate(flag, ec)
	if flag != nil {
		if c.analytics != nil {
			c.analytics.TrackEvaluation(flag.Name)
		}
		c.notify(EventFlagEvaluated, flag, &result)
	}
	return result
}

// EvaluateByID looks a flag up and evaluates it. The lookup can fail with a
// NotFoundError; the evaluation itself cannot.
func (c *Client) EvaluateByID(id string, ec flags.EvaluationContext) (flagengine.EvaluationResult, error) {
	flag, err := c.GetFlag(id)
	if err != nil {
		return flagengine.EvaluationResult{}, err
	}
	return c.Evaluate(flag, ec), nil
}

// EvaluateByName looks a flag up by name and evaluates it.
func (c *Client) EvaluateByName(name string, ec flags.EvaluationContext) (flagengine.EvaluationResult, error) {
	flag, err := c.GetFlagByName(name)
	if err != nil {
		return flagengine.EvaluationResult{}, err
	}
	return c.Evaluate(flag, ec), nil
}

// EvaluateAll evaluates every stored flag against one context, in insertion
// order.
func (c *Client) EvaluateAll(ec flags.EvaluationContext) []flagengine.EvaluationResult {
	population := c.repo.List(ListOptions{})
	results := flagengine.EvaluateBatch(population, ec)
	for i, flag := range population {
		if c.analytics != nil {
			c.analytics.TrackEvaluation(flag.Name)
		}
		c.notify(EventFlagEvaluated, flag, &results[i])
	}
	return results
}

func (c *Client) notify(eventType EventType, flag *flags.FeatureFlag, result *flagengine.EvaluationResult) {
	if len(c.observers) == 0 {
		return
	}
	event := Event{
		Type:   eventType,
		Flag:   flag,
		Result: result,
		At:     c.now(),
	}
	if flag != nil {
		event.FlagID = flag.ID
	}
	for _, observer := range c.observers {
		observer.Notify(event)
	}
}

func (c *Client) now() time.Time {
	if c.factory.Now != nil {
		return c.factory.Now()
	}
	return time.Now()
}

func (c *Client) newID() string {
	if c.factory.NewID != nil {
		return c.factory.NewID()
	}
	return uuid.NewString()
}
