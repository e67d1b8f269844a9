package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying failures across layers. Handlers map these
// to HTTP status codes in one place; services never inspect status codes.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrVerification = errors.New("upstream verification failed")
	ErrPersistence  = errors.New("persistence failure")
)

// DomainError wraps a sentinel with a human-readable message and an optional
// underlying cause.
type DomainError struct {
	Err     error
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewValidationError reports malformed input, rejected before any mutation.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewNotFoundError reports a missing referenced entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a uniqueness violation surfaced as a domain outcome.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewInvalidStateError reports an illegal state-machine transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: fmt.Sprintf("invalid transition from %s to %s", from, to)}
}

// NewRateLimitedError reports an admission denial with a retry hint in seconds.
func NewRateLimitedError(retryAfterSeconds int) *DomainError {
	return &DomainError{Err: ErrRateLimited, Message: fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfterSeconds)}
}

// NewVerificationError reports a payment event that failed its signature check.
func NewVerificationError(message string) *DomainError {
	return &DomainError{Err: ErrVerification, Message: message}
}

// NewPersistenceError reports storage unavailability with the underlying cause.
func NewPersistenceError(message string, cause error) *DomainError {
	return &DomainError{Err: ErrPersistence, Message: message, Cause: cause}
}
