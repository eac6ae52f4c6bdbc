package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStateConflict is returned when a versioned write lost a race.
	ErrStateConflict = errors.New("report was modified concurrently")

	// ErrHistoric is returned for any mutation attempted on a snapshot.
	ErrHistoric = errors.New("historic reports are immutable")

	// ErrBatchFailed is returned when no item of a batch succeeded.
	ErrBatchFailed = errors.New("batch failed for every item")
)

// ValidationError names the offending field path.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects all problems found in one document.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field error.
func (e *ValidationErrors) Add(field, format string, args ...interface{}) {
	*e = append(*e, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when no errors were collected.
func (e ValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// NotFoundError is returned for unknown identifiers.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NotAllowedError is returned when the actor lacks a capability or the state
// predicate of a transition does not hold.
type NotAllowedError struct {
	Reason string
	Err    error
}

func (e *NotAllowedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not allowed: %s: %v", e.Reason, e.Err)
	}
	return "not allowed: " + e.Reason
}

func (e *NotAllowedError) Unwrap() error { return e.Err }

// ReferentialIntegrityError blocks deletion of a referenced entity.
type ReferentialIntegrityError struct {
	Entity string
	ID     string
	Count  int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %q is referenced by %d report(s)", e.Entity, e.ID, e.Count)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsNotAllowed reports whether err is or wraps a NotAllowedError.
func IsNotAllowed(err error) bool {
	var na *NotAllowedError
	return errors.As(err, &na)
}

// IsValidation reports whether err carries validation errors.
func IsValidation(err error) bool {
	var ve ValidationErrors
	var single *ValidationError
	return errors.As(err, &ve) || errors.As(err, &single)
}
