package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/persistence"
	"github.com/relengworks/shipit/pkg/testutil"
)

func newTestRepository(t *testing.T) *ReleaseRepository {
	t.Helper()

	return NewReleaseRepository(t.TempDir())
}

func TestReleaseRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a release with phases", func(t *testing.T) {
		repo := newTestRepository(t)
		release := testutil.CreateTestRelease()

		require.NoError(t, repo.Create(ctx, release))

		got, err := repo.GetByName(ctx, release.Name)
		require.NoError(t, err)

		assert.Equal(t, release.Name, got.Name)
		assert.Equal(t, models.ReleaseStatusScheduled, got.Status)
		assert.Equal(t, 1, got.RowVersion)
		require.Len(t, got.Phases, 2)
		assert.Equal(t, release.Phases[0].TaskID, got.Phases[0].TaskID)
		assert.Equal(t, release.Phases[0].Rendered["workerType"], got.Phases[0].Rendered["workerType"])
	})

	t.Run("duplicate create is a conflict", func(t *testing.T) {
		repo := newTestRepository(t)
		release := testutil.CreateTestRelease()

		require.NoError(t, repo.Create(ctx, release))

		err := repo.Create(ctx, testutil.CreateTestRelease())
		require.ErrorIs(t, err, persistence.ErrReleaseAlreadyExists)
	})

	t.Run("unknown release", func(t *testing.T) {
		repo := newTestRepository(t)

		_, err := repo.GetByName(ctx, "firefox-999.0-build1")
		require.True(t, persistence.IsReleaseNotFound(err))
	})

	t.Run("names cannot walk out of the releases directory", func(t *testing.T) {
		root := t.TempDir()
		repo := NewReleaseRepository(root)

		secret := filepath.Join(root, "secret.json")
		require.NoError(t, os.WriteFile(secret, []byte(`{"name":"outside"}`), 0o644))

		for _, name := range []string{"../secret", "..", ".", "", `..\secret`, "nested/secret"} {
			_, err := repo.GetByName(ctx, name)
			assert.True(t, persistence.IsReleaseNotFound(err), "read %q", name)

			err = repo.Create(ctx, testutil.CreateTestRelease(func(r *models.Release) {
				r.Name = name
			}))
			assert.Error(t, err, "create %q", name)
		}

		// The planted file outside releases/ was never touched or shadowed.
		data, err := os.ReadFile(secret)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"outside"}`, string(data))
	})
}

func TestReleaseRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("persists phase signoff and bumps the row version", func(t *testing.T) {
		repo := newTestRepository(t)
		release := testutil.CreateTestRelease()
		require.NoError(t, repo.Create(ctx, release))

		release.Phases[0].Submitted = true
		release.Phases[0].CompletedBy = "releng@example.com"
		release.Status = models.ReleaseStatusShipped

		require.NoError(t, repo.Update(ctx, release))
		assert.Equal(t, 2, release.RowVersion)

		got, err := repo.GetByName(ctx, release.Name)
		require.NoError(t, err)
		assert.Equal(t, models.ReleaseStatusShipped, got.Status)
		assert.True(t, got.Phases[0].Submitted)
		assert.Equal(t, "releng@example.com", got.Phases[0].CompletedBy)
		assert.Equal(t, 2, got.RowVersion)
	})

	t.Run("concurrent mutation is detected", func(t *testing.T) {
		repo := newTestRepository(t)
		release := testutil.CreateTestRelease()
		require.NoError(t, repo.Create(ctx, release))

		first, err := repo.GetByName(ctx, release.Name)
		require.NoError(t, err)

		second, err := repo.GetByName(ctx, release.Name)
		require.NoError(t, err)

		first.Status = models.ReleaseStatusAborted
		require.NoError(t, repo.Update(ctx, first))

		second.Status = models.ReleaseStatusShipped
		err = repo.Update(ctx, second)

		require.True(t, persistence.IsStaleRelease(err))

		got, err := repo.GetByName(ctx, release.Name)
		require.NoError(t, err)
		assert.Equal(t, models.ReleaseStatusAborted, got.Status)
	})

	t.Run("updating an unknown release", func(t *testing.T) {
		repo := newTestRepository(t)

		err := repo.Update(ctx, testutil.CreateTestRelease())
		require.True(t, persistence.IsReleaseNotFound(err))
	})
}

func TestReleaseRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	scheduled := testutil.CreateTestRelease()
	require.NoError(t, repo.Create(ctx, scheduled))

	shipped := testutil.CreateTestRelease(func(r *models.Release) {
		r.Name = "firefox-132.0-build3"
		r.Version = "132.0"
		r.BuildNumber = 3
		r.Status = models.ReleaseStatusShipped
	})
	require.NoError(t, repo.Create(ctx, shipped))

	thunderbird := testutil.CreateTestRelease(func(r *models.Release) {
		r.Name = "thunderbird-128.0-build1"
		r.Product = "thunderbird"
		r.Branch = "comm-beta"
		r.Version = "128.0"
	})
	require.NoError(t, repo.Create(ctx, thunderbird))

	tests := []struct {
		name     string
		opts     persistence.ListReleasesOptions
		expected []string
	}{
		{
			name:     "no filters returns everything",
			opts:     persistence.ListReleasesOptions{},
			expected: []string{scheduled.Name, shipped.Name, thunderbird.Name},
		},
		{
			name:     "by product",
			opts:     persistence.ListReleasesOptions{Product: "thunderbird"},
			expected: []string{thunderbird.Name},
		},
		{
			name:     "by status",
			opts:     persistence.ListReleasesOptions{Statuses: []models.ReleaseStatus{models.ReleaseStatusShipped}},
			expected: []string{shipped.Name},
		},
		{
			name:     "by version and build number",
			opts:     persistence.ListReleasesOptions{Version: "132.0", BuildNumber: 3},
			expected: []string{shipped.Name},
		},
		{
			name:     "no match",
			opts:     persistence.ListReleasesOptions{Product: "firefox", Branch: "comm-beta"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			releases, err := repo.List(ctx, tt.opts)
			require.NoError(t, err)

			names := make([]string, 0, len(releases))
			for _, release := range releases {
				names = append(names, release.Name)
			}

			assert.ElementsMatch(t, tt.expected, names)
		})
	}
}
