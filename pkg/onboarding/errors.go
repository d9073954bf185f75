package onboarding

import (
	"errors"
	"fmt"
)

// ErrIntentNotFound is returned when a commit references an intent that is
// unknown, expired, or already consumed. The client restarts from intent
// creation rather than guessing.
var ErrIntentNotFound = errors.New("creation intent not found or no longer usable")

// ErrSessionNotFound is returned when an onboarding token references a
// session that no longer exists.
var ErrSessionNotFound = errors.New("onboarding session not found")

// ValidationError is a locally recoverable input failure; it never leaves the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ConflictError marks a duplicate/already-exists outcome that callers may
// treat as success (staff accounts) or surface as a specific inline message.
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Resource)
}

// TimeoutError marks a network call that exceeded its budget. The user gets a
// retry affordance, never a silent failure.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Op)
}

// BackendError wraps any other upstream failure; the message is passed
// through where safe.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
