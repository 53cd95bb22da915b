package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case checks that errors.Is() walks the chain to the right sentinel —
// that's the property everything else (writeError's status mapping, the
// handlers' branching) depends on.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "DuplicateEmail wraps ErrConflict",
			err:       DuplicateEmail("a@b.com"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "UserNotFound wraps ErrNotFound",
			err:       UserNotFound("a@b.com"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials wraps ErrUnauthorized",
			err:       InvalidCredentials(),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("email", "email is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "UserNotFound does NOT match ErrUnauthorized",
			err:       UserNotFound("a@b.com"),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
		{
			name:      "InvalidCredentials does NOT match ErrNotFound",
			err:       InvalidCredentials(),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

// Wrapping with fmt.Errorf("%w") must not break sentinel matching — the
// stores wrap before returning.
func TestErrorsIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("registering account: %w", DuplicateEmail("a@b.com"))

	if !errors.Is(err, ErrConflict) {
		t.Error("wrapped DuplicateEmail should still match ErrConflict")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should extract *AppError through the wrap")
	}
	if appErr.Field != "email" {
		t.Errorf("Field = %q, want %q", appErr.Field, "email")
	}
}

func TestMessages(t *testing.T) {
	if got := DuplicateEmail("x@y.com").Error(); got != "an account with email x@y.com already exists" {
		t.Errorf("unexpected message: %q", got)
	}
	if got := InvalidCredentials().Error(); got != "invalid credentials" {
		t.Errorf("unexpected message: %q", got)
	}
}
