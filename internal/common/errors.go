package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds. Stage loops switch on these to decide log-and-continue vs. abort.
var (
	ErrConfig       = errors.New("configuration error")
	ErrDatabase     = errors.New("database error")
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate row")
	ErrFileNotFound = errors.New("file not found on disk")
	ErrImageDecode  = errors.New("image decode failed")
	ErrOCR          = errors.New("ocr failed")
	ErrLLM          = errors.New("llm request failed")
	ErrMalformedDOB = errors.New("malformed dob response")
	ErrCircuitOpen  = errors.New("llm circuit open")
	ErrInvalidInput = errors.New("invalid input")
	ErrLocked       = errors.New("stage already running")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// KindError attaches an error kind to an underlying cause so both stay matchable
// with errors.Is.
func KindError(kind error, message string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, message)
	}
	return fmt.Errorf("%w: %s: %w", kind, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}

// KindName returns a short stable label for metrics and summaries.
func KindName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, ErrImageDecode):
		return "image_decode"
	case errors.Is(err, ErrOCR):
		return "ocr"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrLLM):
		return "llm"
	case errors.Is(err, ErrMalformedDOB):
		return "malformed_dob"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDatabase):
		return "database"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrLocked):
		return "locked"
	default:
		return "other"
	}
}
