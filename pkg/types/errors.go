package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict matches any OptimisticConflictError via errors.Is
	ErrConflict = errors.New("optimistic conflict")

	// ErrNotFound matches any NotFoundError via errors.Is
	ErrNotFound = errors.New("not found")

	// ErrValidation matches any ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")
)

// ConflictMessage is the text callers show when a layout write lost a race
const ConflictMessage = "two clients may have changed page ordering simultaneously; retry"

// OptimisticConflictError reports a write that lost a race on a uniqueness
// constraint. Retrying the whole logical operation from fresh reads is safe.
type OptimisticConflictError struct {
	Op  string
	Err error
}

func (e *OptimisticConflictError) Error() string {
	if e.Op == "" {
		return ConflictMessage
	}
	return fmt.Sprintf("%s: %s", e.Op, ConflictMessage)
}

func (e *OptimisticConflictError) Unwrap() error { return e.Err }

func (e *OptimisticConflictError) Is(target error) bool { return target == ErrConflict }

// NewConflict wraps cause as an OptimisticConflictError for op
func NewConflict(op string, cause error) error {
	return &OptimisticConflictError{Op: op, Err: cause}
}

// NotFoundError reports a missing scope, page or placement
type NotFoundError struct {
	Kind string // "page", "placement", "scope"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PageNotFound returns a NotFoundError for a page in scope
func PageNotFound(scope, pageID string) error {
	return &NotFoundError{Kind: "page", Key: scope + "/" + pageID}
}

// PlacementNotFound returns a NotFoundError for a placement row
func PlacementNotFound(scope string, rowID uint64) error {
	return &NotFoundError{Kind: "placement", Key: fmt.Sprintf("%s/%d", scope, rowID)}
}

// ValidationError reports caller input that cannot be applied
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalidf builds a ValidationError from a format string
func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StoreError wraps an unexpected storage failure. It is never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
