package flags

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/flagvault/flagvault-go/flagengine/utils"
)

type RuleType string

const (
	RuleTypeTenant     RuleType = "tenant"
	RuleTypeUser       RuleType = "user"
	RuleTypePercentage RuleType = "percentage"
)

// Rule is a targeting predicate attached to a flag. The Type discriminant
// selects which variant fields apply: TenantIDs for tenant rules, UserIDs for
// user rules, Percentage for percentage rollout rules.
type Rule struct {
	ID         string    `json:"id"`
	Type       RuleType  `json:"type"`
	Enabled    bool      `json:"enabled"`
	TenantIDs  []string  `json:"tenant_ids,omitempty"`
	UserIDs    []string  `json:"user_ids,omitempty"`
	Percentage int       `json:"percentage,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Evaluate reports whether the rule matches the given context. A disabled
// rule never matches, regardless of its variant fields.
func (r *Rule) Evaluate(ec EvaluationContext) (bool, error) {
	if !r.Enabled {
		return false, nil
	}
	switch r.Type {
	case RuleTypeTenant:
		return slices.Contains(r.TenantIDs, ec.TenantID), nil
	case RuleTypeUser:
		return slices.Contains(r.UserIDs, ec.UserID), nil
	case RuleTypePercentage:
		return r.matchesPercentage(ec), nil
	default:
		return false, InvalidRuleTypeError{Type: string(r.Type)}
	}
}

// matchesPercentage buckets the identity into [0:100) and matches when the
// bucket falls below the rollout percentage. The bucket is deterministic for
// a fixed (user, tenant) pair, so increasing the percentage only ever adds
// identities to the rollout.
func (r *Rule) matchesPercentage(ec EvaluationContext) bool {
	if r.Percentage <= 0 {
		return false
	}
	if r.Percentage >= 100 {
		return true
	}
	return utils.GetHashedBucketForKey(ec.CompositeKey()) < r.Percentage
}

// FeatureFlag is a named feature with a global default and an ordered list of
// targeting rules. Rule order is evaluation precedence.
type FeatureFlag struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Rules       []Rule    `json:"rules"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddRule appends a rule to the end of the evaluation order.
func (f *FeatureFlag) AddRule(r Rule, at time.Time) {
	f.Rules = append(f.Rules, r)
	f.UpdatedAt = at
}

// RemoveRule deletes the rule with the given id, preserving the order of the
// remaining rules. It reports whether a rule was removed.
func (f *FeatureFlag) RemoveRule(ruleID string, at time.Time) bool {
	for i := range f.Rules {
		if f.Rules[i].ID == ruleID {
			f.Rules = append(f.Rules[:i], f.Rules[i+1:]...)
			f.UpdatedAt = at
			return true
		}
	}
	return false
}

// SetEnabled toggles the flag's global default.
func (f *FeatureFlag) SetEnabled(enabled bool, at time.Time) {
	f.Enabled = enabled
	f.UpdatedAt = at
}

// Clone returns a deep copy. Mutating the copy never affects the original,
// which lets stores hand out or swap flags without racing readers.
func (f *FeatureFlag) Clone() *FeatureFlag {
	clone := *f
	clone.Rules = make([]Rule, len(f.Rules))
	copy(clone.Rules, f.Rules)
	for i := range clone.Rules {
		clone.Rules[i].TenantIDs = slices.Clone(clone.Rules[i].TenantIDs)
		clone.Rules[i].UserIDs = slices.Clone(clone.Rules[i].UserIDs)
	}
	return &clone
}

// EvaluationContext is the request-time identity a flag is evaluated against.
//
// AdditionalData is an opaque bag the engine does not interpret; it is
// reserved for future rule variants.
type EvaluationContext struct {
	UserID         string         `json:"user_id"`
	TenantID       string         `json:"tenant_id"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// CompositeKey returns the identity key percentage rules are bucketed by.
func (ec EvaluationContext) CompositeKey() string {
	return ec.UserID + ":" + ec.TenantID
}

// Valid reports whether the context carries both required identifiers.
func (ec EvaluationContext) Valid() bool {
	return ec.UserID != "" && ec.TenantID != ""
}

// Factory supplies identifier and timestamp generation for entity
// construction, keeping constructors deterministic under test.
type Factory struct {
	NewID func() string
	Now   func() time.Time
}

// DefaultFactory generates UUID identifiers and wall-clock timestamps.
func DefaultFactory() Factory {
	return Factory{NewID: uuid.NewString, Now: time.Now}
}

func (fa Factory) newID() string {
	if fa.NewID == nil {
		return uuid.NewString()
	}
	return fa.NewID()
}

func (fa Factory) now() time.Time {
	if fa.Now == nil {
		return time.Now()
	}
	return fa.Now()
}

// NewFlag constructs a flag with generated id and timestamps. Rules keep the
// order they are passed in.
func NewFlag(fa Factory, name, description string, enabled bool, rules ...Rule) *FeatureFlag {
	now := fa.now()
	return &FeatureFlag{
		ID:          fa.newID(),
		Name:        name,
		Description: description,
		Enabled:     enabled,
		Rules:       rules,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTenantRule constructs an enabled rule matching any of the given tenants.
func NewTenantRule(fa Factory, tenantIDs ...string) Rule {
	return Rule{
		ID:        fa.newID(),
		Type:      RuleTypeTenant,
		Enabled:   true,
		TenantIDs: tenantIDs,
		CreatedAt: fa.now(),
	}
}

// NewUserRule constructs an enabled rule matching any of the given users.
func NewUserRule(fa Factory, userIDs ...string) Rule {
	return Rule{
		ID:        fa.newID(),
		Type:      RuleTypeUser,
		Enabled:   true,
		UserIDs:   userIDs,
		CreatedAt: fa.now(),
	}
}

// NewPercentageRule constructs an enabled percentage rollout rule. Out of
// range percentages are clamped into [0,100] rather than rejected.
func NewPercentageRule(fa Factory, percentage int) Rule {
	return Rule{
		ID:         fa.newID(),
		Type:       RuleTypePercentage,
		Enabled:    true,
		Percentage: ClampPercentage(percentage),
		CreatedAt:  fa.now(),
	}
}

// ClampPercentage forces a percentage into the [0,100] interval.
func ClampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
