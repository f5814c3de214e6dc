package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session exceeded its idle timeout.
	ErrSessionExpired = errors.New("session expired")

	// ErrStateNotFound is returned when a state ID is not part of the graph.
	ErrStateNotFound = errors.New("state not found")

	// ErrNoMatchingTransition is returned when neither a regular nor a fallback transition matched.
	ErrNoMatchingTransition = errors.New("no matching transition")

	// ErrValidationFailed is returned when input does not satisfy a validation tag.
	ErrValidationFailed = errors.New("validation failed")

	// ErrBusinessHook is returned when a business hook fails.
	ErrBusinessHook = errors.New("business hook failed")

	// ErrUnknownHook is returned when a state names a hook nobody registered.
	ErrUnknownHook = errors.New("unknown business hook")

	// ErrStoreUnavailable wraps transient I/O failures of a session store.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// GraphLoadError lists every problem found while loading an automaton.
type GraphLoadError struct {
	Problems []error
}

func (e *GraphLoadError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid automaton: " + e.Problems[0].Error()
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("invalid automaton: found %d errors:\n- %s", len(e.Problems), strings.Join(msgs, "\n- "))
}

func (e *GraphLoadError) Unwrap() []error {
	return e.Problems
}

// ValidationError carries the user-readable reason of a failed validation.
type ValidationError struct {
	Tag    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation %q: %s", e.Tag, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// HookError wraps the failure of a named business hook.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %q: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

func (e *HookError) Is(target error) bool {
	return target == ErrBusinessHook
}

var (
	// ErrUserNotFound is returned when no user is registered for a phone number.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when registering a phone number twice.
	ErrUserExists = errors.New("phone number already registered")

	// ErrShipmentNotFound is returned when a tracking id matches no shipment.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrInvalidStatusTransition is returned when a shipment status would move backwards.
	ErrInvalidStatusTransition = errors.New("invalid shipment status transition")
)
