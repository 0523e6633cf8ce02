package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors so the transport layer can map them to
// HTTP status codes without inspecting message strings.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindRateLimited
	KindTokenNotFound
	KindTokenExpired
	KindTokenAlreadyUsed
)

// Error is the common type for all domain-level failures.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError creates an error for invalid input or guard violations.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewNotFoundError creates an error for a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewConflictError creates an error for state conflicts such as a lost
// optimistic-lock race or a duplicate active booking.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewForbiddenError creates an error for operations the caller may not perform.
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewRateLimitedError creates an error for requests rejected by a rate limit.
func NewRateLimitedError(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// NewInvalidTransitionError creates an error for an illegal status transition.
func NewInvalidTransitionError(from, to string) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: fmt.Sprintf("invalid transition from %s to %s", from, to),
	}
}

// Token errors are distinguished internally for logging but must be presented
// to end users as a single generic message (see response package).
var (
	ErrTokenNotFound    = &Error{Kind: KindTokenNotFound, Message: "token not found"}
	ErrTokenExpired     = &Error{Kind: KindTokenExpired, Message: "token expired"}
	ErrTokenAlreadyUsed = &Error{Kind: KindTokenAlreadyUsed, Message: "token already used"}
)

// KindOf extracts the ErrorKind from err, unwrapping as needed. The boolean
// reports whether err is a domain error at all.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsTokenError reports whether err is one of the token validation failures.
func IsTokenError(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == KindTokenNotFound || kind == KindTokenExpired || kind == KindTokenAlreadyUsed
}

// PaginatedResult wraps a page of items with pagination metadata.
type PaginatedResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPaginatedResult creates a PaginatedResult for the given page.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) PaginatedResult[T] {
	return PaginatedResult[T]{Items: items, Total: total, Page: page, Limit: limit}
}
