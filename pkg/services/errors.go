// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/relengworks/shipit/pkg/flavors"
	"github.com/relengworks/shipit/pkg/persistence"
	"github.com/relengworks/shipit/pkg/queue"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrBuildNumberWithoutVersion = errors.New("filtering by build_number without version is not supported")

	// Business Logic Conflicts (409 Conflict).
	ErrPhaseAlreadySubmitted = errors.New("phase already submitted")

	// ErrReleaseNotScheduled guards the forward-only status lifecycle: a
	// shipped or aborted release accepts no further sign-offs or aborts.
	ErrReleaseNotScheduled = errors.New("release is no longer scheduled")
)

// AbandonError reports a partial abort failure: cancellation of one phase
// failed, so the release was deliberately left in scheduled status. Phases
// cancelled before the failure stay cancelled; re-running Abandon is safe.
type AbandonError struct {
	Release string // Release being abandoned
	Phase   string // Phase whose cancellation pipeline failed
	Err     error  // Underlying error
}

func (e *AbandonError) Error() string {
	return fmt.Sprintf("failed to cancel phase %s of release %s: %v", e.Phase, e.Release, e.Err)
}

func (e *AbandonError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrBuildNumberWithoutVersion) ||
		errors.Is(err, flavors.ErrUnsupportedFlavor)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrPhaseAlreadySubmitted) ||
		errors.Is(err, ErrReleaseNotScheduled) ||
		errors.Is(err, persistence.ErrStaleRelease) ||
		errors.Is(err, persistence.ErrReleaseAlreadyExists) ||
		errors.Is(err, queue.ErrTaskConflict)
}

// IsAbandonError checks if an error is a partial abort failure.
func IsAbandonError(err error) bool {
	var abandonErr *AbandonError

	return errors.As(err, &abandonErr)
}
