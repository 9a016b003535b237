package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Store implementations when a record is absent.
	ErrNotFound = errors.New("record not found")

	// ErrUserNotFound is returned when the submitting user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCode is returned when no session carries the submitted code.
	ErrInvalidCode = errors.New("invalid attendance code")

	// ErrCodeExpired is returned when the code's validity window has passed.
	ErrCodeExpired = errors.New("attendance code expired")

	// ErrAlreadyMarked is returned on a second submission for the same
	// (user, session) pair.
	ErrAlreadyMarked = errors.New("attendance already marked")

	// ErrBadHierarchy is returned when a batch does not belong to the
	// claimed domain at session creation time.
	ErrBadHierarchy = errors.New("invalid domain/batch hierarchy")
)

// HierarchyError reports a user/session domain-batch mismatch at marking
// time. It carries both sides of the pair for debuggability.
type HierarchyError struct {
	UserDomain    string
	UserBatch     string
	SessionDomain string
	SessionBatch  string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("mismatch: you belong to %s/%s, but this session is for %s/%s",
		e.UserDomain, e.UserBatch, e.SessionDomain, e.SessionBatch)
}
