package flagvault_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flagvault "github.com/flagvault/flagvault-go"
	"github.com/flagvault/flagvault-go/flagengine/flags"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []flagvault.Event
}

func (o *recordingObserver) Notify(event flagvault.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) recorded() []flagvault.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]flagvault.Event(nil), o.events...)
}

func newTestClient(t *testing.T, options ...flagvault.Option) *flagvault.Client {
	t.Helper()
	n := 0
	factory := flags.Factory{
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
		Now: func() time.Time {
			return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		},
	}
	return flagvault.New(append([]flagvault.Option{flagvault.WithFactory(factory)}, options...)...)
}

func TestEndToEndTenantTargeting(t *testing.T) {
	c := newTestClient(t)

	_, err := c.CreateFlag("f1", "", false, flags.NewTenantRule(c.Factory(), "t1"))
	require.NoError(t, err)

	hit, err := c.EvaluateByName("f1", flags.EvaluationContext{UserID: "u1", TenantID: "t1"})
	require.NoError(t, err)
	assert.True(t, hit.Enabled)
	assert.False(t, hit.FallbackToDefault)
	require.NotNil(t, hit.MatchedRule)
	assert.Equal(t, flags.RuleTypeTenant, hit.MatchedRule.Type)

	miss, err := c.EvaluateByName("f1", flags.EvaluationContext{UserID: "u1", TenantID: "t2"})
	require.NoError(t, err)
	assert.False(t, miss.Enabled)
	assert.True(t, miss.FallbackToDefault)
	assert.Nil(t, miss.MatchedRule)
}

func TestCreateFlagConflict(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateFlag("dup", "", true)
	require.NoError(t, err)

	_, err = c.CreateFlag("dup", "", false)
	var conflict flagvault.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGetFlagNotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetFlag("missing")
	var notFound flagvault.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = c.GetFlagByName("missing")
	assert.ErrorAs(t, err, &notFound)

	_, err = c.EvaluateByID("missing", flags.EvaluationContext{UserID: "u", TenantID: "t"})
	assert.ErrorAs(t, err, &notFound)
}

func TestClientCRUDRoundTrip(t *testing.T) {
	c := newTestClient(t)

	created, err := c.CreateFlag("roundtrip", "initial", false)
	require.NoError(t, err)

	enabled := true
	updated, err := c.UpdateFlag(created.ID, flagvault.FlagUpdate{Enabled: &enabled})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)

	assert.True(t, c.FlagExists(created.ID))
	assert.Equal(t, 1, c.CountFlags(""))
	assert.Len(t, c.ListFlags(flagvault.ListOptions{}), 1)
	assert.Equal(t, flagvault.Stats{Total: 1, Enabled: 1}, c.Stats())

	assert.True(t, c.DeleteFlag(created.ID))
	assert.False(t, c.DeleteFlag(created.ID))
	assert.False(t, c.FlagExists(created.ID))
}

func TestAddAndRemoveRule(t *testing.T) {
	c := newTestClient(t)
	created, err := c.CreateFlag("ruled", "", false)
	require.NoError(t, err)

	rule := flags.NewUserRule(c.Factory(), "u1")
	withRule, err := c.AddRule(created.ID, rule)
	require.NoError(t, err)
	require.Len(t, withRule.Rules, 1)

	result, err := c.EvaluateByID(created.ID, flags.EvaluationContext{UserID: "u1", TenantID: "t1"})
	require.NoError(t, err)
	assert.True(t, result.Enabled)

	without, err := c.RemoveRule(created.ID, rule.ID)
	require.NoError(t, err)
	assert.Empty(t, without.Rules)

	_, err = c.RemoveRule(created.ID, "missing-rule")
	var notFound flagvault.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestObserversReceiveStateTransitions(t *testing.T) {
	observer := &recordingObserver{}
	c := newTestClient(t, flagvault.WithObserver(observer))

	created, err := c.CreateFlag("observed", "", true)
	require.NoError(t, err)
	enabled := false
	_, err = c.UpdateFlag(created.ID, flagvault.FlagUpdate{Enabled: &enabled})
	require.NoError(t, err)
	c.Evaluate(created, flags.EvaluationContext{UserID: "u1", TenantID: "t1"})
	c.DeleteFlag(created.ID)

	events := observer.recorded()
	require.Len(t, events, 4)
	assert.Equal(t, flagvault.EventFlagCreated, events[0].Type)
	assert.Equal(t, flagvault.EventFlagUpdated, events[1].Type)
	assert.Equal(t, flagvault.EventFlagEvaluated, events[2].Type)
	require.NotNil(t, events[2].Result)
	assert.Equal(t, flagvault.EventFlagDeleted, events[3].Type)
	for _, event := range events {
		assert.Equal(t, created.ID, event.FlagID)
	}
}

func TestEvaluateAllPreservesInsertionOrder(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateFlag("a", "", true)
	require.NoError(t, err)
	_, err = c.CreateFlag("b", "", false, flags.NewUserRule(c.Factory(), "u1"))
	require.NoError(t, err)
	_, err = c.CreateFlag("c", "", false)
	require.NoError(t, err)

	results := c.EvaluateAll(flags.EvaluationContext{UserID: "u1", TenantID: "t1"})
	require.Len(t, results, 3)
	assert.True(t, results[0].Enabled)
	assert.True(t, results[0].FallbackToDefault)
	assert.True(t, results[1].Enabled)
	assert.False(t, results[1].FallbackToDefault)
	assert.False(t, results[2].Enabled)
}

func TestRulePrecedenceAcrossVariants(t *testing.T) {
	c := newTestClient(t)
	fa := c.Factory()

	// A disabled rule ahead of a matching one must be skipped, and the first
	// enabled matching rule wins over later matches.
	disabled := flags.NewTenantRule(fa, "t1")
	disabled.Enabled = false
	percentage := flags.NewPercentageRule(fa, 100)
	user := flags.NewUserRule(fa, "u1")

	created, err := c.CreateFlag("precedence", "", false, disabled, percentage, user)
	require.NoError(t, err)

	result, err := c.EvaluateByID(created.ID, flags.EvaluationContext{UserID: "u1", TenantID: "t1"})
	require.NoError(t, err)
	require.NotNil(t, result.MatchedRule)
	assert.Equal(t, percentage.ID, result.MatchedRule.ID)
}
