package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the store, the report writer or the
// use cases wraps exactly one of these so callers can branch with errors.Is.
var (
	ErrStorage    = errors.New("storage error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrIO         = errors.New("io error")
)

var (
	ErrInvalidInput  = fmt.Errorf("%w: invalid input data", ErrValidation)
	ErrInvalidDevice = fmt.Errorf("%w: invalid device id", ErrValidation)
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Storage wraps err as a storage failure with an operation label.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IO wraps err as an output failure for the given path.
func IO(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}

// Code returns the AppError code carried by err, or a code derived from its kind.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrStorage):
		return "STORAGE_ERROR"
	case errors.Is(err, ErrIO):
		return "IO_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
