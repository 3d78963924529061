package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleaseName(t *testing.T) {
	assert.Equal(t, "firefox-133.0-build2", ReleaseName("firefox", "133.0", 2))
	assert.Equal(t, "thunderbird-128.5.1-build1", ReleaseName("thunderbird", "128.5.1", 1))
}

func TestRelease_Phase(t *testing.T) {
	release := &Release{
		Phases: []*Phase{
			{Name: "promote"},
			{Name: "ship"},
		},
	}

	assert.Equal(t, "ship", release.Phase("ship").Name)
	assert.Nil(t, release.Phase("push"))
}

func TestRelease_AllPhasesSubmitted(t *testing.T) {
	release := &Release{
		Phases: []*Phase{
			{Name: "promote", Submitted: true},
			{Name: "ship"},
		},
	}

	assert.False(t, release.AllPhasesSubmitted())

	release.Phases[1].Submitted = true
	assert.True(t, release.AllPhasesSubmitted())
}

func TestTaskDefinition_Dependencies(t *testing.T) {
	tests := []struct {
		name     string
		task     TaskDefinition
		expected []string
	}{
		{
			name:     "no dependencies",
			task:     TaskDefinition{},
			expected: nil,
		},
		{
			name:     "string slice",
			task:     TaskDefinition{"dependencies": []string{"a", "b"}},
			expected: []string{"a", "b"},
		},
		{
			name:     "decoded json slice",
			task:     TaskDefinition{"dependencies": []any{"a", "b"}},
			expected: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.task.Dependencies())
		})
	}
}

func TestTaskDefinition_AppendDependency(t *testing.T) {
	task := TaskDefinition{"dependencies": []any{"existing"}}

	task.AppendDependency("origin")

	assert.Equal(t, []string{"existing", "origin"}, task.Dependencies())

	empty := TaskDefinition{}
	empty.AppendDependency("origin")
	assert.Equal(t, []string{"origin"}, empty.Dependencies())
}

func TestActionsManifest_Action(t *testing.T) {
	manifest := &ActionsManifest{
		Actions: []Action{
			{Name: "cancel-all"},
			{Name: "retrigger"},
		},
	}

	assert.Equal(t, "retrigger", manifest.Action("retrigger").Name)
	assert.Nil(t, manifest.Action("backfill"))
}
