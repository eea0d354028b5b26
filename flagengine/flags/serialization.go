package flags

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itlightning/dateparse"
)

// InvalidRuleTypeError reports a rule discriminant outside the known set.
// Deserialization fails hard on it rather than dropping the rule.
type InvalidRuleTypeError struct {
	Type string
}

func (e InvalidRuleTypeError) Error() string {
	return fmt.Sprintf("invalid rule type %q", e.Type)
}

func knownRuleType(t RuleType) bool {
	switch t {
	case RuleTypeTenant, RuleTypeUser, RuleTypePercentage:
		return true
	}
	return false
}

type ruleJSON struct {
	ID         string          `json:"id"`
	Type       RuleType        `json:"type"`
	Enabled    bool            `json:"enabled"`
	TenantIDs  []string        `json:"tenant_ids"`
	UserIDs    []string        `json:"user_ids"`
	Percentage int             `json:"percentage"`
	CreatedAt  json.RawMessage `json:"created_at"`
}

// UnmarshalJSON decodes a rule, rejecting unknown discriminants and clamping
// the percentage the same way the constructor does.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !knownRuleType(raw.Type) {
		return InvalidRuleTypeError{Type: string(raw.Type)}
	}
	createdAt, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("rule %q: %w", raw.ID, err)
	}
	*r = Rule{
		ID:         raw.ID,
		Type:       raw.Type,
		Enabled:    raw.Enabled,
		TenantIDs:  raw.TenantIDs,
		UserIDs:    raw.UserIDs,
		Percentage: ClampPercentage(raw.Percentage),
		CreatedAt:  createdAt,
	}
	return nil
}

type featureFlagJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Enabled     bool            `json:"enabled"`
	Rules       []Rule          `json:"rules"`
	CreatedAt   json.RawMessage `json:"created_at"`
	UpdatedAt   json.RawMessage `json:"updated_at"`
}

// UnmarshalJSON decodes a flag. Rule order in the document is preserved as
// evaluation order.
func (f *FeatureFlag) UnmarshalJSON(data []byte) error {
	var raw featureFlagJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	createdAt, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("flag %q: %w", raw.Name, err)
	}
	updatedAt, err := parseTimestamp(raw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("flag %q: %w", raw.Name, err)
	}
	*f = FeatureFlag{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Enabled:     raw.Enabled,
		Rules:       raw.Rules,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	return nil
}

// parseTimestamp accepts RFC 3339 timestamps as well as the looser formats
// other tooling tends to emit (dates without zones, slashes, unix-style
// strings), using dateparse for the non-standard ones.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return time.Time{}, nil
		}
		return dateparse.ParseAny(s)
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %s", string(raw))
	}
	return t, nil
}
