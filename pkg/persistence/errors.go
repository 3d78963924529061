// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrReleaseNotFound indicates a release was not found by the given name.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrPhaseNotFound indicates a phase was not found within a release.
	ErrPhaseNotFound = errors.New("phase not found")

	// ErrReleaseAlreadyExists indicates a release with the same name already exists.
	ErrReleaseAlreadyExists = errors.New("release already exists")

	// ErrStaleRelease indicates an optimistic-concurrency conflict: the
	// release row changed since it was read.
	ErrStaleRelease = errors.New("release was modified concurrently")
)

// ReleaseError wraps release-related errors with additional context.
type ReleaseError struct {
	Op      string // Operation being performed (e.g., "GetByName", "Create", "Update")
	Release string // Release name if applicable
	Phase   string // Phase name if applicable
	Err     error  // Underlying error
}

func (e *ReleaseError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s operation failed for phase %s of release %s: %v", e.Op, e.Phase, e.Release, e.Err)
	}

	return fmt.Sprintf("%s operation failed for release %s: %v", e.Op, e.Release, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for release errors.
func (e *ReleaseError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewReleaseError creates a new release error with context.
func NewReleaseError(op, release string, err error) *ReleaseError {
	return &ReleaseError{
		Op:      op,
		Release: release,
		Err:     err,
	}
}

// IsReleaseNotFound checks if an error indicates a release was not found.
func IsReleaseNotFound(err error) bool {
	return errors.Is(err, ErrReleaseNotFound)
}

// IsPhaseNotFound checks if an error indicates a phase was not found.
func IsPhaseNotFound(err error) bool {
	return errors.Is(err, ErrPhaseNotFound)
}

// IsStaleRelease checks if an error indicates a concurrent modification.
func IsStaleRelease(err error) bool {
	return errors.Is(err, ErrStaleRelease)
}
