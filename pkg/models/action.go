package models

// Action is one named follow-up task template declared by an already-executed
// task group.
type Action struct {
	Name        string         `json:"name"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Kind        string         `json:"kind"`
	Schema      map[string]any `json:"schema,omitempty"`
	Task        TaskDefinition `json:"task"`
}

// ActionsManifest is the declarative set of actions available for a task
// group, plus the parameter bag the group was originally rendered with.
type ActionsManifest struct {
	Version    int            `json:"version"`
	Variables  map[string]any `json:"variables,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Actions    []Action       `json:"actions"`
}

// Action returns the declared action with the given name, or nil.
func (m *ActionsManifest) Action(name string) *Action {
	for i := range m.Actions {
		if m.Actions[i].Name == name {
			return &m.Actions[i]
		}
	}

	return nil
}

// ActionContext carries everything needed to finish rendering a generated
// action task. It is transient and never persisted.
type ActionContext struct {
	Input      map[string]any `json:"input"`
	Parameters map[string]any `json:"parameters"`
	OwnTaskID  string         `json:"own_task_id"`
}
