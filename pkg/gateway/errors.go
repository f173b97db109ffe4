package gateway

import (
	"errors"
	"fmt"

	"github.com/atelieredu/traza/pkg/cognitive"
)

// SessionNotFoundError is returned when an operation references a session
// id the store has never seen.
type SessionNotFoundError struct {
	ID string
}

func (e SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

// IsSessionNotFound reports whether err is (or wraps) a
// SessionNotFoundError.
func IsSessionNotFound(err error) bool {
	var nf SessionNotFoundError
	return errors.As(err, &nf)
}

// InactiveSessionError is returned when an interaction arrives for a
// session that is no longer accepting them.
type InactiveSessionError struct {
	ID     string
	Status cognitive.SessionStatus
}

func (e InactiveSessionError) Error() string {
	return fmt.Sprintf("session %s is %s, not active", e.ID, e.Status)
}

// IsInactiveSession reports whether err is (or wraps) an
// InactiveSessionError.
func IsInactiveSession(err error) bool {
	var ia InactiveSessionError
	return errors.As(err, &ia)
}

// ValidationError is returned when a request is malformed before any side
// effect takes place. A rejected request never leaves a partial trace.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
