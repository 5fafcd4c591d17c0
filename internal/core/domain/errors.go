package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure that reaches the HTTP edge unwraps to exactly one of these.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUpstream       = errors.New("upstream error")
	ErrTimeout        = errors.New("upstream timeout")
	ErrInternal       = errors.New("internal error")
)

// Messages that never carry upstream or runtime detail.
const (
	MsgUnexpected = "Unexpected error occurred"
	MsgTimeout    = "Upstream request timed out"
)

// CommandError is a classified failure with a caller-safe message.
type CommandError struct {
	Kind    error
	Message string
	Details []string
}

func (e *CommandError) Error() string {
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Kind
}

// NewError builds a CommandError of the given kind.
func NewError(kind error, format string, args ...any) *CommandError {
	return &CommandError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidRequest is a shorthand for the most common kind.
func InvalidRequest(format string, args ...any) *CommandError {
	return NewError(ErrInvalidRequest, format, args...)
}

// Internal returns the generic internal error. The cause is never exposed.
func Internal() *CommandError {
	return &CommandError{Kind: ErrInternal, Message: MsgUnexpected}
}

// AsCommandError extracts the classified error, or reports false for anything unclassified.
func AsCommandError(err error) (*CommandError, bool) {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
