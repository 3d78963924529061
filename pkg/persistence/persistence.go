// Package persistence provides data storage abstraction for releases and
// their phases.
package persistence

import (
	"context"

	"github.com/relengworks/shipit/pkg/models"
)

type Persistence interface {
	ReleaseRepository() ReleaseRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ListReleasesOptions filters release listing. BuildNumber is only
// meaningful together with Version; callers validate that combination.
type ListReleasesOptions struct {
	Product     string
	Branch      string
	Version     string
	BuildNumber int
	Statuses    []models.ReleaseStatus
}

// ReleaseRepository persists Release records together with their phases. A
// release and its phases are written as one atomic unit; a release without
// its phases must never be observable.
type ReleaseRepository interface {
	List(ctx context.Context, opts ListReleasesOptions) ([]*models.Release, error)
	GetByName(ctx context.Context, name string) (*models.Release, error)

	// Create persists a new release and all of its phases atomically.
	// Returns ErrReleaseAlreadyExists if the name is taken.
	Create(ctx context.Context, release *models.Release) error

	// Update persists release and phase mutations guarded by the release's
	// RowVersion. Returns ErrStaleRelease if another writer got there first;
	// on success the in-memory RowVersion is bumped.
	Update(ctx context.Context, release *models.Release) error
}
