package desk

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when an insert collides with an existing name.
	// Callers treat it as a no-op, not a failure.
	ErrDuplicateName = errors.New("name already exists")

	// ErrNotFound is returned when a delete or reorder references an unknown name.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPosition is returned when a reorder target is outside [0, n).
	ErrInvalidPosition = errors.New("invalid position")

	// ErrInvalidCategory is returned for labels outside the fixed category set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrEmptyName is returned when a name is blank after trimming.
	ErrEmptyName = errors.New("name is empty")

	// ErrMalformedRow marks a bulk import row that was skipped.
	ErrMalformedRow = errors.New("malformed row")
)

// RowError describes one skipped row of a bulk import.
// Line is 1-based and counts the header when present.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() []error {
	return []error{ErrMalformedRow, e.Err}
}
