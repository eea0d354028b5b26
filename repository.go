package flagvault

import (
	"strings"
	"sync"
	"time"

	"github.com/flagvault/flagvault-go/flagengine/flags"
)

// Repository is the in-memory flag store. Flags live in one primary map keyed
// by id; a secondary name → id index makes lookups by name O(1) without ever
// holding a second live copy. Every mutation updates both indexes inside a
// single lock scope, so at any observable instant the id key and the name key
// of a flag either both resolve to the same object or are both absent.
//
// Updates are copy-on-write: the stored flag is replaced with a mutated clone
// rather than edited in place, so evaluations running concurrently with a
// mutation always read a consistent snapshot.
type Repository struct {
	mu       sync.RWMutex
	byID     map[string]*flags.FeatureFlag
	idByName map[string]string
	order    []string // flag ids in insertion order; List is stable in this order
	now      func() time.Time
}

// NewRepository creates an empty store. The factory's clock stamps UpdatedAt
// on mutations.
func NewRepository(fa flags.Factory) *Repository {
	now := fa.Now
	if now == nil {
		now = time.Now
	}
	return &Repository{
		byID:     make(map[string]*flags.FeatureFlag),
		idByName: make(map[string]string),
		now:      now,
	}
}

// Create stores a flag under both its id and its name. It fails with a
// ConflictError when either key is already taken, leaving the store untouched.
func (r *Repository) Create(flag *flags.FeatureFlag) (*flags.FeatureFlag, error) {
	if flag == nil {
		return nil, InvalidFlagError{Reason: "flag is nil"}
	}
	if flag.ID == "" {
		return nil, InvalidFlagError{Reason: "id is required"}
	}
	if flag.Name == "" {
		return nil, InvalidFlagError{Reason: "name is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[flag.ID]; exists {
		return nil, ConflictError{Field: "id", Value: flag.ID}
	}
	if _, exists := r.idByName[flag.Name]; exists {
		return nil, ConflictError{Field: "name", Value: flag.Name}
	}

	stored := flag.Clone()
	r.byID[stored.ID] = stored
	r.idByName[stored.Name] = stored.ID
	r.order = append(r.order, stored.ID)
	return stored, nil
}

// FindByID returns the flag stored under the given id, or nil.
func (r *Repository) FindByID(id string) *flags.FeatureFlag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// FindByName returns the flag stored under the given name, or nil.
func (r *Repository) FindByName(name string) *flags.FeatureFlag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByName[name]
	if !ok {
		return nil
	}
	return r.byID[id]
}

// FlagUpdate is the field subset an Update applies. Nil fields are left
// unchanged; Rules replaces the whole rule list when non-nil (pass an empty
// non-nil slice to clear it).
type FlagUpdate struct {
	Name        *string
	Description *string
	Enabled     *bool
	Rules       []flags.Rule
}

// Update applies a partial update to the flag with the given id and bumps its
// UpdatedAt. A name change is checked against the name index first and the
// index is retargeted together with the field change, under the same lock, so
// the rename is all-or-nothing.
func (r *Repository) Update(id string, update FlagUpdate) (*flags.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, NotFoundError{ID: id}
	}

	if update.Name != nil && *update.Name != current.Name {
		if takenBy, exists := r.idByName[*update.Name]; exists && takenBy != id {
			return nil, ConflictError{Field: "name", Value: *update.Name}
		}
	}

	updated := current.Clone()
	if update.Name != nil {
		updated.Name = *update.Name
	}
	if update.Description != nil {
		updated.Description = *update.Description
	}
	if update.Enabled != nil {
		updated.Enabled = *update.Enabled
	}
	if update.Rules != nil {
		updated.Rules = make([]flags.Rule, len(update.Rules))
		copy(updated.Rules, update.Rules)
	}
	updated.UpdatedAt = r.now()

	if updated.Name != current.Name {
		delete(r.idByName, current.Name)
		r.idByName[updated.Name] = id
	}
	r.byID[id] = updated
	return updated, nil
}

// Delete removes a flag from both indexes and reports whether it existed.
func (r *Repository) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	flag, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	delete(r.idByName, flag.Name)
	for i, storedID := range r.order {
		if storedID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Exists reports whether a flag is stored under the given id.
func (r *Repository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// ListOptions control filtering and pagination of List. Search is a
// case-insensitive substring match over name and description; pagination
// applies after filtering. A Limit of zero or less means no limit.
type ListOptions struct {
	Limit  int
	Offset int
	Search string
}

// List returns flags in insertion order, filtered and paginated.
func (r *Repository) List(opts ListOptions) []*flags.FeatureFlag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := make([]*flags.FeatureFlag, 0, len(r.order))
	for _, id := range r.order {
		if flag := r.byID[id]; matchesSearch(flag, opts.Search) {
			filtered = append(filtered, flag)
		}
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(filtered) {
		return nil
	}
	filtered = filtered[offset:]
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered
}

// Count returns the number of flags matching the search filter, independent
// of pagination. Each logical flag counts once; the name index never holds
// flag objects, so there is nothing to deduplicate.
func (r *Repository) Count(search string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if search == "" {
		return len(r.byID)
	}
	n := 0
	for _, flag := range r.byID {
		if matchesSearch(flag, search) {
			n++
		}
	}
	return n
}

// Stats is an aggregate read-only view over the flag population.
type Stats struct {
	Total    int `json:"total"`
	Enabled  int `json:"enabled"`
	Disabled int `json:"disabled"`
	Rules    int `json:"rules"`
}

// Stats computes aggregate counts over the whole population.
func (r *Repository) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Total: len(r.byID)}
	for _, flag := range r.byID {
		if flag.Enabled {
			s.Enabled++
		} else {
			s.Disabled++
		}
		s.Rules += len(flag.Rules)
	}
	return s
}

func matchesSearch(flag *flags.FeatureFlag, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(flag.Name), needle) ||
		strings.Contains(strings.ToLower(flag.Description), needle)
}
