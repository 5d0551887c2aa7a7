// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package world

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound    = errors.New("world: resource not found")
	ErrRejected    = errors.New("world: request rejected")
	ErrUnavailable = errors.New("world: host unreachable or transport failure")
	ErrUpstream    = errors.New("world: internal error (5xx)")
	ErrBadResponse = errors.New("world: invalid response format or malformed data")
	ErrTimeout     = errors.New("world: request timed out")
)

// Error wraps a sentinel with the failed operation and, when known, the HTTP
// status, a body excerpt and the lower-level cause.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("world: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// retryable reports whether the failure says something about host health
// rather than about the request.
func retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrUpstream) || errors.Is(err, ErrTimeout)
}
