package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the five error kinds of the coding-discovery
// subsystem. Components return these (or wrap them) rather than ad-hoc
// strings so callers can branch with errors.Is/errors.As.
var (
	// ErrValidation marks input rejected at the entry of an operation.
	ErrValidation = errors.New("validation error")

	// ErrTransientUpstream marks a retryable vector/LLM network failure.
	ErrTransientUpstream = errors.New("transient upstream error")

	// ErrPersistentUpstream marks missing schema/credentials: fatal,
	// not retryable.
	ErrPersistentUpstream = errors.New("persistent upstream error")

	// ErrConsistency marks a structural invariant violation surfaced as
	// a warning rather than silently repaired.
	ErrConsistency = errors.New("consistency error")

	// ErrForbidden marks an ownership violation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a missing task/checkpoint/fragment.
	ErrNotFound = errors.New("not found")

	// ErrTenantRequired marks a strict-mode write missing an org/project
	// prefix.
	ErrTenantRequired = errors.New("tenant required")

	// ErrStorageUnavailable marks missing artifact-store configuration.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError wraps ErrValidation with a human-readable reason.
type ValidationError struct {
	Reason string
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AxialNotReadyError is a validation-error subclass carrying the list
// of reasons an axial relation could not be written.
type AxialNotReadyError struct {
	BlockingReasons []string
}

func NewAxialNotReadyError(reasons ...string) *AxialNotReadyError {
	return &AxialNotReadyError{BlockingReasons: reasons}
}

func (e *AxialNotReadyError) Error() string {
	return fmt.Sprintf("axial relation not ready: %v", e.BlockingReasons)
}

func (e *AxialNotReadyError) Unwrap() error { return ErrValidation }

// OwnershipError wraps ErrForbidden with the task being accessed.
type OwnershipError struct {
	TaskID string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("task %s is not owned by the caller", e.TaskID)
}

func (e *OwnershipError) Unwrap() error { return ErrForbidden }

// ConsistencyWarning wraps ErrConsistency with structured detail; it is
// returned alongside a usable (non-nil) result where the design calls
// for "never silently fix data".
type ConsistencyWarning struct {
	Detail string
}

func NewConsistencyWarning(detail string) *ConsistencyWarning {
	return &ConsistencyWarning{Detail: detail}
}

func (e *ConsistencyWarning) Error() string {
	return fmt.Sprintf("consistency warning: %s", e.Detail)
}

func (e *ConsistencyWarning) Unwrap() error { return ErrConsistency }
