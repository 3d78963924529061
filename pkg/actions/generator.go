package actions

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/template"
)

var (
	// ErrActionNotFound indicates the manifest declares no action with the
	// requested name.
	ErrActionNotFound = errors.New("action not found in manifest")

	// ErrInvalidActionInput indicates the caller-supplied input does not
	// satisfy the action's declared schema.
	ErrInvalidActionInput = errors.New("action input does not match schema")
)

// taskIDNamespace seeds the name-based task id derivation. Fixed so that
// repeated generation for the same inputs yields the same id.
var taskIDNamespace = uuid.MustParse("8bd227f5-55a1-4a08-a306-9f4a67e0c2d1")

// strippedParameters are large audit-trail blobs never consumed by an action
// task. They are removed before rendering because the execution backend
// enforces a maximum task-definition size. The list is fixed and explicit so
// stripping stays deterministic and auditable.
var strippedParameters = []string{
	"existing_tasks",
	"release_history",
	"release_partner_config",
}

// Generator produces concrete action tasks from manifest-declared templates.
type Generator struct{}

// NewGenerator creates a new action task generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate looks up actionName in the manifest, validates input against the
// action's declared schema, and returns the derived task id, the unrendered
// task skeleton and the context needed to finish rendering.
func (g *Generator) Generate(actionName string, input map[string]any, manifest *models.ActionsManifest) (string, models.TaskDefinition, *models.ActionContext, error) {
	action := manifest.Action(actionName)
	if action == nil {
		return "", nil, nil, fmt.Errorf("action %q: %w", actionName, ErrActionNotFound)
	}

	if input == nil {
		input = map[string]any{}
	}

	err := validateInput(action, input)
	if err != nil {
		return "", nil, nil, err
	}

	taskID, err := deriveTaskID(actionName, input, manifest.Parameters)
	if err != nil {
		return "", nil, nil, err
	}

	actionCtx := &models.ActionContext{
		Input:      input,
		Parameters: maps.Clone(manifest.Parameters),
		OwnTaskID:  taskID,
	}
	if actionCtx.Parameters == nil {
		actionCtx.Parameters = map[string]any{}
	}

	skeleton := models.TaskDefinition(maps.Clone(action.Task))

	return taskID, skeleton, actionCtx, nil
}

// StripOversizedParameters removes the fixed oversized-parameter set from the
// context. Must run before Render.
func StripOversizedParameters(actionCtx *models.ActionContext) {
	for _, param := range strippedParameters {
		delete(actionCtx.Parameters, param)
	}
}

// Render performs template substitution over the task skeleton.
// pinnedTaskID is the id of the action task that originally produced the
// work being acted on; it is injected explicitly because the manifest may
// have been regenerated since, and an inferred id could point to the wrong
// origin.
func (g *Generator) Render(task models.TaskDefinition, actionCtx *models.ActionContext, pinnedTaskID string) (models.TaskDefinition, error) {
	data := map[string]any{
		"input":          actionCtx.Input,
		"parameters":     actionCtx.Parameters,
		"own_task_id":    actionCtx.OwnTaskID,
		"action_task_id": pinnedTaskID,
	}

	rendered, err := template.RenderDeep(map[string]any(task), data)
	if err != nil {
		return nil, fmt.Errorf("failed to render action task: %w", err)
	}

	renderedMap, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rendered action task is not an object")
	}

	return models.TaskDefinition(renderedMap), nil
}

func validateInput(action *models.Action, input map[string]any) error {
	if action.Schema == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(action.Schema)
	inputLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, inputLoader)
	if err != nil {
		return fmt.Errorf("failed to validate action input: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidActionInput, strings.Join(details, "; "))
	}

	return nil
}

// deriveTaskID produces a 22-character URL-safe slug from a name-based UUID
// over the action name, the canonical input and the manifest parameters.
func deriveTaskID(actionName string, input, parameters map[string]any) (string, error) {
	inputJSON, err := canonicalJSON(input)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize action input: %w", err)
	}

	parametersJSON, err := canonicalJSON(parameters)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize parameters: %w", err)
	}

	seed := actionName + "\x00" + inputJSON + "\x00" + parametersJSON
	id := uuid.NewSHA1(taskIDNamespace, []byte(seed))

	return base64.RawURLEncoding.EncodeToString(id[:]), nil
}

// canonicalJSON marshals m with sorted keys so equal maps encode equally.
func canonicalJSON(m map[string]any) (string, error) {
	if m == nil {
		return "null", nil
	}

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var builder strings.Builder

	builder.WriteByte('{')

	for i, key := range keys {
		if i > 0 {
			builder.WriteByte(',')
		}

		keyJSON, err := json.Marshal(key)
		if err != nil {
			return "", err
		}

		valueJSON, err := json.Marshal(m[key])
		if err != nil {
			return "", err
		}

		builder.Write(keyJSON)
		builder.WriteByte(':')
		builder.Write(valueJSON)
	}

	builder.WriteByte('}')

	return builder.String(), nil
}
