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

// Error kinds. Every failure surfaced by a pipeline stage wraps exactly one of these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoInput      = errors.New("no input files")
	ErrIO           = errors.New("io error")
	ErrEncoding     = errors.New("encoding error")
	ErrExtraction   = errors.New("extraction failed")
	ErrGenerator    = errors.New("suggestion generation failed")
	ErrRename       = errors.New("rename failed")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error codes used with AppError.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeEncoding   = "ENCODING_ERROR"
	CodeGenerator  = "GENERATOR_ERROR"
	CodeRename     = "RENAME_ERROR"
	CodeIO         = "IO_ERROR"
	CodeHistory    = "HISTORY_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Kind returns the short name of the error kind err wraps, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrGenerator):
		return "generator"
	case errors.Is(err, ErrRename):
		return "rename"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return "invalid_input"
	case errors.Is(err, ErrNoInput):
		return "no_input"
	case errors.Is(err, ErrDatabase):
		return "database"
	}
	return "unknown"
}
