package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the caller lacks a required capability.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPreconditionFailed indicates the action is invalid for the current state.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrStore indicates the backing store failed; callers may retry.
	ErrStore = errors.New("store unavailable")
)

// StoreError wraps a persistence failure so callers can match ErrStore.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Preconditionf builds an ErrPreconditionFailed with a specific message.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// Validationf builds an ErrValidation with a specific message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unauthorizedf builds an ErrUnauthorized with a specific message.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// UserSafeMessage returns a message that can be shown to end users. Store
// failures are not described beyond a retry hint.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStore):
		return "the receivables store is unavailable, please retry"
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrPreconditionFailed),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound):
		return err.Error()
	default:
		return "unexpected error"
	}
}
