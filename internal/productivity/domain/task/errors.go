package task

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTitle        = errors.New("task title cannot be empty")
	ErrEmptyID           = errors.New("task id cannot be empty")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrInvalidCompletion = errors.New("completion date requires a done task")
	ErrEmptyPatch        = errors.New("patch changes nothing")
	ErrDuplicateID       = errors.New("task id already exists")
	ErrNotFound          = errors.New("task not found")
)

// ValidationError reports bad caller input. Operations that fail validation
// never reach the gateway and leave the store untouched.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransportError reports that the gateway was unreachable or rejected a request.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err for gateway operation op. ErrNotFound passes
// through unwrapped so callers can tell a missing document from a failed call.
func NewTransportError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
