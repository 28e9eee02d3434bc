package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEngineFailure   = errors.New("engine reported failure")
	ErrEngineException = errors.New("engine invocation failed")
	ErrNoSelection     = errors.New("no clip selected")
	ErrNoSource        = errors.New("no source loaded")
	ErrBusy            = errors.New("operation already in progress")
	ErrTimeout         = errors.New("engine timed out")
	ErrInvalidParams   = errors.New("invalid parameters")
	ErrUnknownClip     = errors.New("unknown clip")
	ErrClosed          = errors.New("session closed")
)

type OpError struct {
	Op  OpKind
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
