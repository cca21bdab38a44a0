package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound = errors.New("book not found")

	ErrMemberNotFound = errors.New("member not found")

	ErrBookUnavailable = errors.New("book has no available copies")

	ErrMemberAtLimit = errors.New("member already holds an open loan")

	ErrNoActiveLoan = errors.New("no active loan for this member and book")

	ErrInvalidDateRange = errors.New("invalid date range")

	ErrDuplicateKey = errors.New("duplicate key")

	ErrBookAlreadyExists = errors.New("book already exists")

	ErrMemberAlreadyExists = errors.New("member already exists")

	ErrTransactionFailed = errors.New("transaction failed")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrDatabase = errors.New("database error")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidArgument, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// WrapTransactionFailure surfaces a persistence fault detected inside a
// transaction after the rollback has been issued. The operation name and the
// identity it was acting on stay in the message so the caller can act on it.
func WrapTransactionFailure(op, identity string, cause error) error {
	return fmt.Errorf("%w: %s for %q: %w", ErrTransactionFailed, op, identity, cause)
}
