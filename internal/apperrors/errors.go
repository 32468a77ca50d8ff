package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrEvaluation indicates that a rate formula was malformed or could not be
// evaluated against the supplied shipment variables. Fatal for the base duty
// formula; individual policy rows that fail evaluation are logged and skipped.
var ErrEvaluation = errors.New("formula evaluation error")

// ErrExternalLookup indicates that an external collaborator (knowledge base,
// historical rate store) was unreachable. Recovered locally as "no result from
// this source" so the resolution chain can proceed.
var ErrExternalLookup = errors.New("external lookup failure")

// AppError carries an HTTP-ish status code alongside a wrapped cause.
type AppError struct {
	Code    int
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

// NewAppError creates an AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError returns an error wrapping ErrNotFound with a contextual message.
func NewNotFoundError(message string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, message)
}

// NewValidationError returns an error wrapping ErrValidation with a contextual message.
func NewValidationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// NewEvaluationError returns an error wrapping ErrEvaluation with a contextual message.
func NewEvaluationError(message string) error {
	return fmt.Errorf("%w: %s", ErrEvaluation, message)
}

// NewExternalLookupError returns an error wrapping ErrExternalLookup with a contextual message.
func NewExternalLookupError(message string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrExternalLookup, message, cause)
	}
	return fmt.Errorf("%w: %s", ErrExternalLookup, message)
}
