// ABOUTME: Error types shared by the note store, adapters and callers.
// ABOUTME: Typed errors carry the field or id; sentinels support errors.Is.

package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrPrefixTooShort  = errors.New("prefix must be at least 6 characters")
	ErrAmbiguousPrefix = errors.New("prefix matches multiple notes")
)

// ValidationError names the first required field that was empty.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// NotFoundError is returned when a mutation targets an id that is not in the
// local working set.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %s not found", e.ID)
}

// Is lets errors.Is(err, ErrNoteNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNoteNotFound
}

// RemoteUnavailableError wraps a failed call to the remote store.
type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}
