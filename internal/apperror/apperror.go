// Package apperror defines the application's error taxonomy.
//
// The account store returns exactly three distinguishable failures:
// duplicate email on register, unknown account on login, and a password
// mismatch on login. Each constructor below wraps a distinct sentinel so
// callers can tell them apart with errors.Is without parsing messages, and
// the HTTP layer can map each one to its own status code.
//
// Note what is NOT here: there is no "task not found" error. Unknown task
// IDs inside the task store are silent no-ops by design — callers must not
// need to pre-check existence before toggling or removing.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel this error wraps
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// DuplicateEmail is returned by Register when an account with the same
// normalized email already exists. Maps to 409 Conflict.
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("an account with email %s already exists", email),
		Field:   "email",
	}
}

// UserNotFound is returned by Login when no account has the given
// normalized email. Maps to 404 Not Found.
func UserNotFound(email string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("no account found for %s", email),
		Field:   "email",
	}
}

// InvalidCredentials is returned by Login when the account exists but the
// password does not match. Maps to 401 Unauthorized.
//
// The message deliberately does not say which part was wrong beyond "the
// password" — the account's existence was already revealed by UserNotFound,
// so there is nothing left to hide at this layer.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid credentials",
	}
}

// ValidationFailed reports a bad input value. Maps to 400 Bad Request.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}
