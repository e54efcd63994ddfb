package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the invitation and signup state machines.
// Handlers map these onto HTTP statuses; anything else that bubbles out
// of the store or the mailer is wrapped so the raw error is never shown
// to callers.
var (
	// ErrNotFound covers both an unknown token and a token whose record
	// already left pending. Callers are untrusted, so the two cases are
	// deliberately indistinguishable.
	ErrNotFound = errors.New("record not found")

	// ErrTokenExpired means the record is still pending but past its
	// expiry window.
	ErrTokenExpired = errors.New("token expired")

	// ErrEmailTaken means a user with the email already exists or a
	// pending signup for it is in flight.
	ErrEmailTaken = errors.New("email already registered")

	// ErrReviewerNotFound means the reviewer id in an invitation request
	// does not resolve to an active reviewer account.
	ErrReviewerNotFound = errors.New("reviewer not found")
)

// DeliveryError wraps a mail transport failure. The record persisted
// just before the send has already been rolled back by the time this is
// returned.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
