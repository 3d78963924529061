// Package file provides file-based persistence for releases, used in tests
// and local development.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/relengworks/shipit/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root        string
	releaseRepo *ReleaseRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		releaseRepo: NewReleaseRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// ReleaseRepository returns the release repository implementation for file persistence.
func (fp *Persistence) ReleaseRepository() persistence.ReleaseRepository {
	return fp.releaseRepo
}
