package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/persistence"
)

// MockReleaseRepository is a mock implementation of
// persistence.ReleaseRepository interface.
type MockReleaseRepository struct {
	mock.Mock
}

func (m *MockReleaseRepository) List(ctx context.Context, opts persistence.ListReleasesOptions) ([]*models.Release, error) {
	args := m.Called(ctx, opts)

	releases, _ := args.Get(0).([]*models.Release)

	return releases, args.Error(1)
}

func (m *MockReleaseRepository) GetByName(ctx context.Context, name string) (*models.Release, error) {
	args := m.Called(ctx, name)

	release, _ := args.Get(0).(*models.Release)

	return release, args.Error(1)
}

func (m *MockReleaseRepository) Create(ctx context.Context, release *models.Release) error {
	args := m.Called(ctx, release)

	return args.Error(0)
}

func (m *MockReleaseRepository) Update(ctx context.Context, release *models.Release) error {
	args := m.Called(ctx, release)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence
// interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) ReleaseRepository() persistence.ReleaseRepository {
	args := m.Called()

	repo, _ := args.Get(0).(persistence.ReleaseRepository)

	return repo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
