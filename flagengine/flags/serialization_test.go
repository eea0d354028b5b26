package flags_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagvault/flagvault-go/flagengine/flags"
)

const flagJSON = `{
	"id": "f-1",
	"name": "checkout",
	"description": "New checkout flow",
	"enabled": false,
	"rules": [
		{"id": "r-1", "type": "tenant", "enabled": true, "tenant_ids": ["t1", "t2"], "created_at": "2024-03-01T12:00:00Z"},
		{"id": "r-2", "type": "user", "enabled": false, "user_ids": ["u1"], "created_at": "2024-03-01T12:00:00Z"},
		{"id": "r-3", "type": "percentage", "enabled": true, "percentage": 25, "created_at": "2024-03-01T12:00:00Z"}
	],
	"created_at": "2024-03-01T12:00:00Z",
	"updated_at": "2024-03-02T08:30:00Z"
}`

func TestUnmarshalFlagPreservesRuleOrder(t *testing.T) {
	var flag flags.FeatureFlag
	require.NoError(t, json.Unmarshal([]byte(flagJSON), &flag))

	assert.Equal(t, "f-1", flag.ID)
	assert.Equal(t, "checkout", flag.Name)
	assert.False(t, flag.Enabled)
	require.Len(t, flag.Rules, 3)
	assert.Equal(t, flags.RuleTypeTenant, flag.Rules[0].Type)
	assert.Equal(t, flags.RuleTypeUser, flag.Rules[1].Type)
	assert.Equal(t, flags.RuleTypePercentage, flag.Rules[2].Type)
	assert.Equal(t, []string{"t1", "t2"}, flag.Rules[0].TenantIDs)
	assert.Equal(t, 25, flag.Rules[2].Percentage)
	assert.Equal(t, time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC), flag.UpdatedAt)
}

func TestMarshalRoundTripPreservesRuleOrder(t *testing.T) {
	var flag flags.FeatureFlag
	require.NoError(t, json.Unmarshal([]byte(flagJSON), &flag))

	out, err := json.Marshal(&flag)
	require.NoError(t, err)

	var again flags.FeatureFlag
	require.NoError(t, json.Unmarshal(out, &again))
	require.Len(t, again.Rules, 3)
	for i := range flag.Rules {
		assert.Equal(t, flag.Rules[i].ID, again.Rules[i].ID)
		assert.Equal(t, flag.Rules[i].Type, again.Rules[i].Type)
	}
}

func TestUnmarshalRuleRejectsUnknownType(t *testing.T) {
	var rule flags.Rule
	err := json.Unmarshal([]byte(`{"id": "r-1", "type": "geo", "enabled": true}`), &rule)
	require.Error(t, err)
	var typeErr flags.InvalidRuleTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "geo", typeErr.Type)
}

func TestUnmarshalFlagRejectsUnknownRuleType(t *testing.T) {
	doc := `{"id": "f-1", "name": "n", "enabled": true, "rules": [{"id": "r-1", "type": "nope"}]}`
	var flag flags.FeatureFlag
	err := json.Unmarshal([]byte(doc), &flag)
	var typeErr flags.InvalidRuleTypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestUnmarshalRuleClampsPercentage(t *testing.T) {
	var rule flags.Rule
	require.NoError(t, json.Unmarshal([]byte(`{"id": "r-1", "type": "percentage", "enabled": true, "percentage": 250}`), &rule))
	assert.Equal(t, 100, rule.Percentage)
}

func TestUnmarshalAcceptsLooseTimestampFormats(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"rfc3339", `{"id": "f", "name": "n", "rules": [], "created_at": "2024-03-01T12:00:00Z"}`},
		{"date only", `{"id": "f", "name": "n", "rules": [], "created_at": "2024-03-01"}`},
		{"space separated", `{"id": "f", "name": "n", "rules": [], "created_at": "2024-03-01 12:00:00"}`},
		{"slashes", `{"id": "f", "name": "n", "rules": [], "created_at": "03/01/2024"}`},
		{"null", `{"id": "f", "name": "n", "rules": [], "created_at": null}`},
		{"absent", `{"id": "f", "name": "n", "rules": []}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var flag flags.FeatureFlag
			assert.NoError(t, json.Unmarshal([]byte(c.doc), &flag))
		})
	}
}

func TestUnmarshalRejectsGarbageTimestamp(t *testing.T) {
	var flag flags.FeatureFlag
	err := json.Unmarshal([]byte(`{"id": "f", "name": "n", "rules": [], "created_at": "not a time"}`), &flag)
	assert.Error(t, err)
}
