package flagvault

import "fmt"

// NotFoundError reports that no flag exists for the requested identifier.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("flag %q not found", e.ID)
}

// ConflictError reports a create or update colliding with an existing flag's
// id or name.
type ConflictError struct {
	Field string
	Value string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("flag with %s %q already exists", e.Field, e.Value)
}

// InvalidFlagError reports a flag that cannot be stored as given.
type InvalidFlagError struct {
	Reason string
}

func (e InvalidFlagError) Error() string {
	return "invalid flag: " + e.Reason
}
