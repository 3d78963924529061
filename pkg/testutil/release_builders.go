// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/relengworks/shipit/pkg/models"
)

// CreateTestRelease creates a scheduled test release with two phases that
// can be overridden.
func CreateTestRelease(overrides ...func(*models.Release)) *models.Release {
	release := &models.Release{
		Name:        "firefox-133.0-build1",
		Product:     "firefox",
		Version:     "133.0",
		Branch:      "mozilla-beta",
		Revision:    "abcdef123456",
		BuildNumber: 1,
		Status:      models.ReleaseStatusScheduled,
		RowVersion:  1,
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	release.Phases = []*models.Phase{
		CreateTestPhase(release.Name, "promote_firefox"),
		CreateTestPhase(release.Name, "ship_firefox", func(p *models.Phase) {
			p.TaskID = "c2hpcF90YXNrX2lkXzAwMDA"
		}),
	}

	for _, override := range overrides {
		override(release)
	}

	return release
}

// CreateTestPhase creates an unsubmitted test phase with default values that
// can be overridden.
func CreateTestPhase(releaseName, phaseName string, overrides ...func(*models.Phase)) *models.Phase {
	phase := &models.Phase{
		Name:        phaseName,
		ReleaseName: releaseName,
		TaskID:      "cHJvbW90ZV90YXNrX2lkXzA",
		Rendered: models.TaskDefinition{
			"provisionerId": "releng-hardware",
			"workerType":    "gecko-decision",
			"metadata": map[string]any{
				"name": phaseName,
			},
		},
	}

	for _, override := range overrides {
		override(phase)
	}

	return phase
}

// WithPhaseSubmitted marks a phase submitted at the given time.
func WithPhaseSubmitted(completedBy string, completed time.Time) func(*models.Phase) {
	return func(p *models.Phase) {
		p.Submitted = true
		p.Completed = &completed
		p.CompletedBy = completedBy
	}
}

// WithStatus sets the release status.
func WithStatus(status models.ReleaseStatus) func(*models.Release) {
	return func(r *models.Release) {
		r.Status = status
	}
}

// CreateTestManifest creates an actions manifest containing a cancel-all
// action with default values that can be overridden.
func CreateTestManifest(overrides ...func(*models.ActionsManifest)) *models.ActionsManifest {
	manifest := &models.ActionsManifest{
		Version: 1,
		Parameters: map[string]any{
			"project":                "mozilla-beta",
			"existing_tasks":         map[string]any{"task-a": "id-a"},
			"release_history":        map[string]any{"133.0": "done"},
			"release_partner_config": map[string]any{"partner": "config"},
		},
		Actions: []models.Action{
			{
				Name:        "cancel-all",
				Title:       "Cancel all tasks",
				Description: "Cancel every task in the group",
				Kind:        "task",
				Task: models.TaskDefinition{
					"provisionerId": "releng-hardware",
					"workerType":    "gecko-decision",
					"metadata": map[string]any{
						"name": "cancel-all",
					},
					"payload": map[string]any{
						"env": map[string]any{
							"ACTION_TASK_GROUP_ID": "{{ .action_task_id }}",
							"PROJECT":              "{{ index .parameters \"project\" }}",
						},
					},
				},
			},
		},
	}

	for _, override := range overrides {
		override(manifest)
	}

	return manifest
}
