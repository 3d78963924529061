package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/persistence"
)

// ReleaseRepository handles release-related file operations. A single mutex
// serializes writers; the optimistic row-version check keeps the behavior
// aligned with the SQL implementation.
type ReleaseRepository struct {
	root string
	mu   sync.RWMutex
}

// NewReleaseRepository creates a new release repository.
func NewReleaseRepository(root string) *ReleaseRepository {
	return &ReleaseRepository{root: root}
}

// List returns releases matching the given filters, newest first.
func (rr *ReleaseRepository) List(ctx context.Context, opts persistence.ListReleasesOptions) ([]*models.Release, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	root := os.DirFS(rr.releasesDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list release files: %w", err)
	}

	releases := make([]*models.Release, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		name := file[:len(file)-5] // Remove .json extension

		release, err := rr.read(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load release %s: %w", name, err)
		}

		if !matches(release, opts) {
			continue
		}

		releases = append(releases, release)
	}

	sort.Slice(releases, func(i, j int) bool {
		return releases[i].CreatedAt.After(releases[j].CreatedAt)
	})

	return releases, nil
}

// GetByName returns a release by name, or ErrReleaseNotFound.
func (rr *ReleaseRepository) GetByName(ctx context.Context, name string) (*models.Release, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.read(name)
}

// Create persists a new release with all of its phases.
func (rr *ReleaseRepository) Create(ctx context.Context, release *models.Release) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	path, err := rr.releasePath(release.Name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return persistence.NewReleaseError("Create", release.Name, persistence.ErrReleaseAlreadyExists)
	}

	now := time.Now().UTC()

	if release.CreatedAt.IsZero() {
		release.CreatedAt = now
	}

	release.UpdatedAt = now
	release.RowVersion = 1

	return rr.write(release)
}

// Update persists release mutations guarded by RowVersion.
func (rr *ReleaseRepository) Update(ctx context.Context, release *models.Release) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	stored, err := rr.read(release.Name)
	if err != nil {
		return err
	}

	if stored.RowVersion != release.RowVersion {
		return persistence.NewReleaseError("Update", release.Name, persistence.ErrStaleRelease)
	}

	release.RowVersion++
	release.UpdatedAt = time.Now().UTC()

	err = rr.write(release)
	if err != nil {
		release.RowVersion--

		return err
	}

	return nil
}

// storedRelease mirrors models.Release but keeps RowVersion on disk.
type storedRelease struct {
	models.Release

	RowVersion int `json:"row_version"`
}

func (rr *ReleaseRepository) read(name string) (*models.Release, error) {
	path, err := rr.releasePath(name)
	if err != nil {
		return nil, persistence.NewReleaseError("GetByName", name, persistence.ErrReleaseNotFound)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewReleaseError("GetByName", name, persistence.ErrReleaseNotFound)
		}

		return nil, fmt.Errorf("failed to read release file: %w", err)
	}

	var stored storedRelease

	err = json.Unmarshal(data, &stored)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal release %s: %w", name, err)
	}

	release := stored.Release
	release.RowVersion = stored.RowVersion

	return &release, nil
}

func (rr *ReleaseRepository) write(release *models.Release) error {
	path, err := rr.releasePath(release.Name)
	if err != nil {
		return err
	}

	err = os.MkdirAll(rr.releasesDir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create releases directory: %w", err)
	}

	stored := storedRelease{Release: *release, RowVersion: release.RowVersion}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal release %s: %w", release.Name, err)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write release file: %w", err)
	}

	return nil
}

func (rr *ReleaseRepository) releasesDir() string {
	return filepath.Join(rr.root, "releases")
}

// releasePath resolves the on-disk file for a release name. Names reach
// here straight from the request path, so anything that could walk out of
// the releases directory is rejected rather than escaped.
func (rr *ReleaseRepository) releasePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid release name %q", name)
	}

	return filepath.Join(rr.releasesDir(), name+".json"), nil
}

func matches(release *models.Release, opts persistence.ListReleasesOptions) bool {
	if opts.Product != "" && release.Product != opts.Product {
		return false
	}

	if opts.Branch != "" && release.Branch != opts.Branch {
		return false
	}

	if opts.Version != "" && release.Version != opts.Version {
		return false
	}

	if opts.BuildNumber > 0 && release.BuildNumber != opts.BuildNumber {
		return false
	}

	if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, release.Status) {
		return false
	}

	return true
}
