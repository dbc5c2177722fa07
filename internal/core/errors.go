package core

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeLoadFailed        = "LOAD_FAILED"
	ErrCodeModelUnavailable  = "MODEL_UNAVAILABLE"
	ErrCodeInvalidInput      = "INVALID_INPUT"
)

// AppError carries an error code, a human readable message and an optional cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same code, so the sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Detail returns the message shown to API clients.
func (e *AppError) Detail() string {
	if e.Cause != nil && e.Code == ErrCodeInvalidInput {
		return e.Cause.Error()
	}
	return e.Message
}

// Sentinels for errors.Is checks.
var (
	ErrUnsupportedFormat = &AppError{Code: ErrCodeUnsupportedFormat, Message: "unsupported model file format"}
	ErrFetchFailed       = &AppError{Code: ErrCodeFetchFailed, Message: "failed to fetch model artifact"}
	ErrLoadFailed        = &AppError{Code: ErrCodeLoadFailed, Message: "failed to load model"}
	ErrModelUnavailable  = &AppError{Code: ErrCodeModelUnavailable, Message: DetailModelNotLoaded}
	ErrInvalidInput      = &AppError{Code: ErrCodeInvalidInput, Message: "invalid input"}
)

// NewAppError creates an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorf creates an AppError with a formatted message.
func NewAppErrorf(code string, cause error, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// UnsupportedFormatError reports an artifact suffix outside the supported set.
func UnsupportedFormatError(path string, supported []string) *AppError {
	return NewAppErrorf(ErrCodeUnsupportedFormat, nil,
		"unsupported model file format %q, supported formats are: %v", path, supported)
}

// FetchFailedError wraps a storage, transport or disk failure during artifact download.
func FetchFailedError(location string, cause error) *AppError {
	return NewAppErrorf(ErrCodeFetchFailed, cause, "failed to fetch model from %s", location)
}

// LoadFailedError wraps a deserialization failure.
func LoadFailedError(path string, cause error) *AppError {
	return NewAppErrorf(ErrCodeLoadFailed, cause, "failed to load model from %s", path)
}

// InvalidInputError reports a client attributable request failure.
func InvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, nil)
}

// PredictionFailedError wraps a normalization or backend failure as invalid input.
func PredictionFailedError(cause error) *AppError {
	return NewAppError(ErrCodeInvalidInput, "prediction failed", cause)
}
