package query

import (
	"errors"
	"fmt"
)

// Kind classifies who is expected to correct an error.
type Kind string

const (
	// UserErr means the caller supplied invalid or ambiguous input.
	UserErr Kind = "UserErr"
	// AIErr means an internal or configuration problem the automated caller
	// should have prevented.
	AIErr Kind = "AIErr"
	// APIErr means the backend signaled failure.
	APIErr Kind = "APIErr"
)

var (
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrLimitExceeded       = errors.New("limit exceeded")
	ErrMissingConfig       = errors.New("missing configuration")
	ErrBackend             = errors.New("backend error")
	ErrPageLimit           = errors.New("page limit reached")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrInvalidValue        = errors.New("invalid value")
)

// Error is a failure tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error wrapping sentinel with a formatted message.
func Errorf(kind Kind, sentinel error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// KindOf reports the Kind of err. Untagged errors are treated as AIErr.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return AIErr
}
