// Package apperr defines the error taxonomy shared across the engine's
// components so callers at any layer can classify a failure without string
// matching on its message.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a coarse error classification used for HTTP-status mapping, retry
// routing, and DLQ decisions.
type Kind string

const (
	InvalidInput         Kind = "invalid_input"
	NotFound             Kind = "not_found"
	Conflict             Kind = "conflict"
	DependencyUnavailable Kind = "dependency_unavailable"
	Timeout              Kind = "timeout"
	RateLimited          Kind = "rate_limited"
	Internal             Kind = "internal"
)

// Error wraps an underlying cause with a Kind and the component that raised
// it, so log lines and retry logic can branch on Kind without parsing text.
type Error struct {
	Kind      Kind
	Component string
	Err       error
}

func (e *Error) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error with the given Kind and component tag.
func Wrap(kind Kind, component string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Err: err}
}

// Newf builds an *Error directly from a format string.
func Newf(kind Kind, component, format string, args ...any) error {
	return &Error{Kind: kind, Component: component, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind of err, defaulting to Internal when err does not
// wrap an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsTransient reports whether a retry is likely to succeed: dependency
// outages, timeouts, and rate limiting are transient; everything else
// (bad input, not-found, conflicts, unclassified internal errors) is not.
// Falls back to a text heuristic for errors that were never wrapped with a
// Kind, since not every dependency client returns classifiable errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case DependencyUnavailable, Timeout, RateLimited:
			return true
		default:
			return false
		}
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "temporary") ||
		strings.Contains(s, "temporarily unavailable") ||
		strings.Contains(s, "transient") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "retry") ||
		strings.Contains(s, "too many requests")
}
