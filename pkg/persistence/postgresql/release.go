package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/relengworks/shipit/pkg/models"
	"github.com/relengworks/shipit/pkg/persistence"
)

// ReleaseRepository handles release-related database operations.
type ReleaseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewReleaseRepository creates a new release repository.
func NewReleaseRepository(db *sql.DB, logger *slog.Logger) *ReleaseRepository {
	return &ReleaseRepository{db: db, logger: logger}
}

const releaseColumns = `
	name
  , product
  , version
  , branch
  , revision
  , build_number
  , release_eta
  , status
  , partial_updates
  , row_version
  , created_at
  , updated_at
`

// List returns releases matching the given filters, newest first.
func (r *ReleaseRepository) List(ctx context.Context, opts persistence.ListReleasesOptions) ([]*models.Release, error) {
	var (
		conditions []string
		args       []any
	)

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if opts.Product != "" {
		addCondition("product = $%d", opts.Product)
	}

	if opts.Branch != "" {
		addCondition("branch = $%d", opts.Branch)
	}

	if opts.Version != "" {
		addCondition("version = $%d", opts.Version)
	}

	if opts.BuildNumber > 0 {
		addCondition("build_number = $%d", opts.BuildNumber)
	}

	if len(opts.Statuses) > 0 {
		statuses := make([]string, 0, len(opts.Statuses))
		for _, status := range opts.Statuses {
			statuses = append(statuses, string(status))
		}

		addCondition("status = ANY($%d)", pq.Array(statuses))
	}

	query := "SELECT " + releaseColumns + " FROM releases"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	releases := make([]*models.Release, 0)

	for rows.Next() {
		release, err := r.scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}

		releases = append(releases, release)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating releases: %w", err)
	}

	for _, release := range releases {
		err = r.loadPhases(ctx, release)
		if err != nil {
			return nil, fmt.Errorf("failed to load phases: %w", err)
		}
	}

	return releases, nil
}

// GetByName returns a release with its phases, or ErrReleaseNotFound.
func (r *ReleaseRepository) GetByName(ctx context.Context, name string) (*models.Release, error) {
	query := "SELECT " + releaseColumns + " FROM releases WHERE name = $1"

	row := r.db.QueryRowContext(ctx, query, name)

	release, err := r.scanRelease(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewReleaseError("GetByName", name, persistence.ErrReleaseNotFound)
		}

		return nil, fmt.Errorf("failed to scan release: %w", err)
	}

	err = r.loadPhases(ctx, release)
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}

	return release, nil
}

// Create persists a new release and all of its phases in one transaction.
func (r *ReleaseRepository) Create(ctx context.Context, release *models.Release) error {
	now := time.Now().UTC()

	if release.CreatedAt.IsZero() {
		release.CreatedAt = now
	}

	release.UpdatedAt = now
	release.RowVersion = 1

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	partialUpdatesJSON, err := json.Marshal(release.PartialUpdates)
	if err != nil {
		return fmt.Errorf("failed to marshal partial updates: %w", err)
	}

	query := `
		INSERT INTO releases (name, product, version, branch, revision, build_number,
release_eta, status, partial_updates, row_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.ExecContext(ctx, query,
		release.Name,
		release.Product,
		release.Version,
		release.Branch,
		release.Revision,
		release.BuildNumber,
		release.ReleaseETA,
		release.Status,
		partialUpdatesJSON,
		release.RowVersion,
		release.CreatedAt,
		release.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewReleaseError("Create", release.Name, persistence.ErrReleaseAlreadyExists)
		}

		return fmt.Errorf("failed to save release: %w", err)
	}

	err = r.savePhases(ctx, tx, release)
	if err != nil {
		return fmt.Errorf("failed to save phases: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update persists release and phase mutations guarded by row_version.
func (r *ReleaseRepository) Update(ctx context.Context, release *models.Release) error {
	release.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		UPDATE releases
		SET status = $1, row_version = row_version + 1, updated_at = $2
		WHERE name = $3 AND row_version = $4
	`

	result, err := tx.ExecContext(ctx, query,
		release.Status,
		release.UpdatedAt,
		release.Name,
		release.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update release: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		err = persistence.NewReleaseError("Update", release.Name, persistence.ErrStaleRelease)

		return err
	}

	for _, phase := range release.Phases {
		phaseQuery := `
			UPDATE phases
			SET submitted = $1, completed = $2, completed_by = $3
			WHERE release_name = $4 AND name = $5
		`

		_, err = tx.ExecContext(ctx, phaseQuery,
			phase.Submitted,
			phase.Completed,
			nullableString(phase.CompletedBy),
			release.Name,
			phase.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to update phase %s: %w", phase.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	release.RowVersion++

	return nil
}

func (r *ReleaseRepository) loadPhases(ctx context.Context, release *models.Release) error {
	query := `
		SELECT name, task_id, rendered, submitted, completed, completed_by
		FROM phases
		WHERE release_name = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, release.Name)
	if err != nil {
		return fmt.Errorf("failed to query phases: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	var phases []*models.Phase

	for rows.Next() {
		var (
			phase        models.Phase
			renderedJSON []byte
			completedBy  sql.NullString
		)

		err := rows.Scan(
			&phase.Name,
			&phase.TaskID,
			&renderedJSON,
			&phase.Submitted,
			&phase.Completed,
			&completedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to scan phase: %w", err)
		}

		err = json.Unmarshal(renderedJSON, &phase.Rendered)
		if err != nil {
			return fmt.Errorf("failed to unmarshal rendered task: %w", err)
		}

		phase.ReleaseName = release.Name
		phase.CompletedBy = completedBy.String
		phases = append(phases, &phase)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating phases: %w", err)
	}

	release.Phases = phases

	return nil
}

func (r *ReleaseRepository) savePhases(ctx context.Context, tx *sql.Tx, release *models.Release) error {
	for position, phase := range release.Phases {
		renderedJSON, err := json.Marshal(phase.Rendered)
		if err != nil {
			return fmt.Errorf("failed to marshal rendered task: %w", err)
		}

		query := `
			INSERT INTO phases (release_name, name, position, task_id, rendered, submitted, completed, completed_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err = tx.ExecContext(ctx, query,
			release.Name,
			phase.Name,
			position,
			phase.TaskID,
			renderedJSON,
			phase.Submitted,
			phase.Completed,
			nullableString(phase.CompletedBy),
		)
		if err != nil {
			return fmt.Errorf("failed to save phase %s: %w", phase.Name, err)
		}
	}

	return nil
}

func (r *ReleaseRepository) scanRelease(scanner interface {
	Scan(dest ...any) error
}) (*models.Release, error) {
	var (
		release            models.Release
		partialUpdatesJSON []byte
	)

	err := scanner.Scan(
		&release.Name,
		&release.Product,
		&release.Version,
		&release.Branch,
		&release.Revision,
		&release.BuildNumber,
		&release.ReleaseETA,
		&release.Status,
		&partialUpdatesJSON,
		&release.RowVersion,
		&release.CreatedAt,
		&release.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if partialUpdatesJSON != nil {
		err := json.Unmarshal(partialUpdatesJSON, &release.PartialUpdates)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal partial updates: %w", err)
		}
	}

	return &release, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
