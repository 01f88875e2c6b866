package admission

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse marks a reply that matches no known outcome.
	// The approval loop treats it as still waiting.
	ErrMalformedResponse = errors.New("malformed response")
	ErrExpired           = errors.New("approval request expired")
	ErrDenied            = errors.New("approval request denied")
	ErrNoCredential      = errors.New("no credential to materialize")
	ErrNotOwner          = errors.New("participant is not the meeting owner")
	ErrClosed            = errors.New("session closed")
)

// TransportError is a store or transport call that failed to complete.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
