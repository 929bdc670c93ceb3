package main

import (
	"errors"
	"fmt"
)

// CriteriaError means the requester's criteria selection cannot be
// scored: nothing selected, an unknown attribute, a weighted attribute
// outside the selection, or a selected attribute the requester has no
// value for. Recoverable by fixing the selection; handlers map it to 400.
type CriteriaError struct {
	Reason string
}

func (e *CriteriaError) Error() string {
	return "invalid criteria: " + e.Reason
}

// AdapterError wraps a failed call to one of the external collaborators
// (attribute store, interest ledger, channel bridge). The failure is
// surfaced to the caller as retryable; the core never retries itself.
type AdapterError struct {
	Op  string // e.g. "store.get_profile", "slack.conversations.open"
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// ErrNotFound marks a missing candidate or profile. Listing endpoints
// treat it as an empty result rather than a failure.
var ErrNotFound = errors.New("not found")

// ErrChannelUnavailable is returned when the chat platform cannot open
// a conversation. Surfaced to the user without automatic retry.
var ErrChannelUnavailable = errors.New("channel unavailable")

func adapterErr(op string, err error) error {
	return &AdapterError{Op: op, Err: err}
}
