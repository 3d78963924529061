// Package models defines the core domain models for release shipping.
package models

import (
	"fmt"
	"time"
)

// ReleaseStatus represents the lifecycle state of a release.
type ReleaseStatus string

const (
	ReleaseStatusScheduled ReleaseStatus = "scheduled" // Created, phases awaiting sign-off
	ReleaseStatusShipped   ReleaseStatus = "shipped"   // Every phase submitted
	ReleaseStatusAborted   ReleaseStatus = "aborted"   // Explicitly abandoned, submitted work cancelled
)

// Release represents one shippable build of a product, decomposed into an
// ordered sequence of phases. Status only moves forward: scheduled to shipped
// once all phases are submitted, or scheduled to aborted on abandon.
type Release struct {
	Name           string         `json:"name"`
	Product        string         `json:"product"        validate:"required"`
	Version        string         `json:"version"        validate:"required"`
	Branch         string         `json:"branch"         validate:"required"`
	Revision       string         `json:"revision"       validate:"required"`
	BuildNumber    int            `json:"build_number"   validate:"required,min=1"`
	ReleaseETA     *time.Time     `json:"release_eta,omitempty"`
	Status         ReleaseStatus  `json:"status"`
	PartialUpdates map[string]any `json:"partial_updates,omitempty"`
	Phases         []*Phase       `json:"phases"`

	// RowVersion backs the optimistic concurrency check; bumped on every
	// successful update.
	RowVersion int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReleaseName derives the unique identity of a release from its coordinates.
func ReleaseName(product, version string, buildNumber int) string {
	return fmt.Sprintf("%s-%s-build%d", product, version, buildNumber)
}

// Phase returns the phase with the given name, or nil.
func (r *Release) Phase(name string) *Phase {
	for _, phase := range r.Phases {
		if phase.Name == name {
			return phase
		}
	}

	return nil
}

// AllPhasesSubmitted reports whether every phase of the release has been
// submitted. Phases may be signed off out of order, so the rollup always
// inspects the full set.
func (r *Release) AllPhasesSubmitted() bool {
	for _, phase := range r.Phases {
		if !phase.Submitted {
			return false
		}
	}

	return true
}

// Phase is one schedulable unit of a release's rollout, backed by one
// external task group. Submitted is a one-way flag: a second submission of
// the same phase is a conflict, never a silent no-op.
type Phase struct {
	Name        string         `json:"name"`
	ReleaseName string         `json:"release"`
	TaskID      string         `json:"task_id"`
	Rendered    TaskDefinition `json:"rendered,omitempty"`
	Submitted   bool           `json:"submitted"`
	Completed   *time.Time     `json:"completed,omitempty"`
	CompletedBy string         `json:"completed_by,omitempty"`
}

// TaskDefinition is the opaque structured payload handed to the task queue.
type TaskDefinition map[string]any

// Dependencies returns the task's dependency list, tolerating both typed and
// freshly-unmarshalled ([]any) representations.
func (t TaskDefinition) Dependencies() []string {
	switch deps := t["dependencies"].(type) {
	case []string:
		return deps
	case []any:
		out := make([]string, 0, len(deps))

		for _, dep := range deps {
			if s, ok := dep.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// AppendDependency adds taskID to the task's dependency list.
func (t TaskDefinition) AppendDependency(taskID string) {
	deps := t.Dependencies()
	deps = append(deps, taskID)
	t["dependencies"] = deps
}
