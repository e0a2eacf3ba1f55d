// Package common defines sentinel errors and error types shared by the
// draftkeeper packages. Callers should use errors.Is / errors.As to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrUnknownTable = errors.New("unknown table")

	// Draft lifecycle errors.
	ErrEmptyDraft   = errors.New("draft has no content")
	ErrNoOwner      = errors.New("owner id is not resolvable")
	ErrUnknownForm  = errors.New("unknown form type")
	ErrNotOpen      = errors.New("form is not open")
	ErrNotFileField = errors.New("field is not a file field")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

// RemoteError reports a network, permission or validation failure returned
// by the remote data store.
type RemoteError struct {
	// Op is the store operation that failed (fetch, insert, update, ...).
	Op string
	// Message is the human readable description shown to users.
	Message string
	// Err is the underlying driver or transport error, if any.
	Err error
}

func (e *RemoteError) Error() string {
	if e.Op == "" {
		return "remote: " + e.Message
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewRemoteError wraps err as a RemoteError for operation op.
func NewRemoteError(op string, err error) *RemoteError {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &RemoteError{Op: op, Message: msg, Err: err}
}
