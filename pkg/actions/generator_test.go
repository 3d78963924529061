package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/testutil"
)

func TestGenerator_Generate(t *testing.T) {
	generator := NewGenerator()

	t.Run("derives a stable 22 character task id", func(t *testing.T) {
		manifest := testutil.CreateTestManifest()

		first, _, _, err := generator.Generate("cancel-all", nil, manifest)
		require.NoError(t, err)

		second, _, _, err := generator.Generate("cancel-all", nil, manifest)
		require.NoError(t, err)

		assert.Len(t, first, 22)
		assert.Equal(t, first, second)
	})

	t.Run("task id changes with input and parameters", func(t *testing.T) {
		manifest := testutil.CreateTestManifest()

		base, _, _, err := generator.Generate("cancel-all", nil, manifest)
		require.NoError(t, err)

		withInput, _, _, err := generator.Generate("cancel-all", map[string]any{"reason": "bad build"}, manifest)
		require.NoError(t, err)
		assert.NotEqual(t, base, withInput)

		other := testutil.CreateTestManifest(func(m *models.ActionsManifest) {
			m.Parameters["project"] = "mozilla-release"
		})

		withOtherParams, _, _, err := generator.Generate("cancel-all", nil, other)
		require.NoError(t, err)
		assert.NotEqual(t, base, withOtherParams)
	})

	t.Run("unknown action name", func(t *testing.T) {
		manifest := testutil.CreateTestManifest()

		_, _, _, err := generator.Generate("retrigger", nil, manifest)

		require.ErrorIs(t, err, ErrActionNotFound)
	})

	t.Run("input is validated against the action schema", func(t *testing.T) {
		manifest := testutil.CreateTestManifest(func(m *models.ActionsManifest) {
			m.Actions[0].Schema = map[string]any{
				"type":                 "object",
				"required":             []any{"reason"},
				"additionalProperties": false,
				"properties": map[string]any{
					"reason": map[string]any{"type": "string"},
				},
			}
		})

		_, _, _, err := generator.Generate("cancel-all", map[string]any{}, manifest)
		require.ErrorIs(t, err, ErrInvalidActionInput)

		_, _, _, err = generator.Generate("cancel-all", map[string]any{"reason": "bad build"}, manifest)
		require.NoError(t, err)
	})

	t.Run("generation does not mutate the manifest", func(t *testing.T) {
		manifest := testutil.CreateTestManifest()

		_, _, actionCtx, err := generator.Generate("cancel-all", nil, manifest)
		require.NoError(t, err)

		StripOversizedParameters(actionCtx)

		assert.Contains(t, manifest.Parameters, "existing_tasks")
		assert.Contains(t, manifest.Parameters, "release_history")
		assert.Contains(t, manifest.Parameters, "release_partner_config")
	})
}

func TestStripOversizedParameters(t *testing.T) {
	actionCtx := &models.ActionContext{
		Parameters: map[string]any{
			"project":                "mozilla-beta",
			"existing_tasks":         map[string]any{"a": "b"},
			"release_history":        map[string]any{"c": "d"},
			"release_partner_config": map[string]any{"e": "f"},
		},
	}

	StripOversizedParameters(actionCtx)

	assert.Equal(t, map[string]any{"project": "mozilla-beta"}, actionCtx.Parameters)
}

func TestGenerator_Render(t *testing.T) {
	generator := NewGenerator()

	t.Run("substitutes the pinned origin task id", func(t *testing.T) {
		manifest := testutil.CreateTestManifest()

		ownTaskID, skeleton, actionCtx, err := generator.Generate("cancel-all", nil, manifest)
		require.NoError(t, err)

		StripOversizedParameters(actionCtx)

		rendered, err := generator.Render(skeleton, actionCtx, "OriginTaskId0000000000")
		require.NoError(t, err)

		payload, ok := rendered["payload"].(map[string]any)
		require.True(t, ok)
		env, ok := payload["env"].(map[string]any)
		require.True(t, ok)

		// The origin id is the explicitly pinned one, never the generated
		// task's own id.
		assert.Equal(t, "OriginTaskId0000000000", env["ACTION_TASK_GROUP_ID"])
		assert.NotEqual(t, ownTaskID, env["ACTION_TASK_GROUP_ID"])
		assert.Equal(t, "mozilla-beta", env["PROJECT"])
	})

	t.Run("renders own task id when referenced", func(t *testing.T) {
		manifest := testutil.CreateTestManifest(func(m *models.ActionsManifest) {
			m.Actions[0].Task["taskGroupId"] = "{{ .own_task_id }}"
		})

		ownTaskID, skeleton, actionCtx, err := generator.Generate("cancel-all", nil, manifest)
		require.NoError(t, err)

		rendered, err := generator.Render(skeleton, actionCtx, "OriginTaskId0000000000")
		require.NoError(t, err)

		assert.Equal(t, ownTaskID, rendered["taskGroupId"])
	})
}
