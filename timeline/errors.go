package timeline

import (
	"errors"
	"fmt"
)

// ValidationError is a malformed mutation: bad input from the caller, never
// a transient condition, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ErrConcurrentEdit signals that canonical state changed after the edit
// session's snapshot. The caller must restart the edit, not force-apply.
var ErrConcurrentEdit = errors.New("canonical state changed during edit session")

// ErrNotEditing is raised by mutations outside an edit session.
var ErrNotEditing = errors.New("no edit session in progress")

// ErrAlreadyEditing is raised when BeginEdit overlaps an open session.
var ErrAlreadyEditing = errors.New("edit session already in progress")
