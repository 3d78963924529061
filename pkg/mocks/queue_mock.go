package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/relengworks/shipit/pkg/models"
)

// MockQueue is a mock implementation of queue.Queue interface.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) CreateTask(ctx context.Context, taskID string, definition models.TaskDefinition) error {
	args := m.Called(ctx, taskID, definition)

	return args.Error(0)
}

// MockResolver is a mock implementation of actions.Resolver interface.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) FetchActions(ctx context.Context, taskID string) (*models.ActionsManifest, error) {
	args := m.Called(ctx, taskID)

	manifest, _ := args.Get(0).(*models.ActionsManifest)

	return manifest, args.Error(1)
}
