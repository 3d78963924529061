// Package queue provides the client adapter for the external task execution
// queue.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/relengworks/shipit/pkg/models"
)

// Standard queue error types.
var (
	// ErrTaskNotFound indicates the queue service does not know the task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskConflict indicates a task with the same id but a different
	// definition already exists. Re-submitting an identical definition is a
	// no-op on the service side, never a duplicate run.
	ErrTaskConflict = errors.New("task already exists with a different definition")
)

// Queue schedules task definitions for execution. Implementations are
// constructed once at startup and injected; credentials and the bounded
// retry policy are process-wide configuration, not per-call.
type Queue interface {
	// CreateTask submits definition under taskID. Idempotent on taskID.
	CreateTask(ctx context.Context, taskID string, definition models.TaskDefinition) error
}

// Error wraps a queue submission failure with the task it concerned.
type Error struct {
	TaskID     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("queue submission failed for task %s (status %d): %v", e.TaskID, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("queue submission failed for task %s: %v", e.TaskID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTaskNotFound checks if an error indicates an unknown task.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}
