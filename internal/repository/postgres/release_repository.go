package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/database"
	"github.com/ctrlplanedev/workspace-engine/internal/repository"
)

var _ repository.Repository[*domain.Release] = (*ReleaseRepository)(nil)

// ReleaseRepository handles release data operations in PostgreSQL.
// Releases reach their workspace through the version release's target
// resource.
type ReleaseRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewReleaseRepository creates a new release repository scoped to a
// workspace
func NewReleaseRepository(db *database.PostgresDB, workspaceID uuid.UUID) *ReleaseRepository {
	return &ReleaseRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a release by id, or nil when absent
func (r *ReleaseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Release, error) {
	query := `
		SELECT rel.id, rel.version_release_id, rel.variable_set_release_id, rel.created_at
		FROM releases rel
		JOIN version_releases vr ON vr.id = rel.version_release_id
		JOIN release_targets rt ON rt.id = vr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE rel.id = $1 AND res.workspace_id = $2
	`

	var release domain.Release
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&release.ID,
		&release.VersionReleaseID,
		&release.VariableSetReleaseID,
		&release.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	return &release, nil
}

// GetAll retrieves every release in the workspace
func (r *ReleaseRepository) GetAll(ctx context.Context) ([]*domain.Release, error) {
	query := `
		SELECT rel.id, rel.version_release_id, rel.variable_set_release_id, rel.created_at
		FROM releases rel
		JOIN version_releases vr ON vr.id = rel.version_release_id
		JOIN release_targets rt ON rt.id = vr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE res.workspace_id = $1
		ORDER BY rel.created_at, rel.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	var releases []*domain.Release
	for rows.Next() {
		var release domain.Release
		if err := rows.Scan(
			&release.ID,
			&release.VersionReleaseID,
			&release.VariableSetReleaseID,
			&release.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		releases = append(releases, &release)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	return releases, nil
}

// Create inserts a release; a duplicate id is ignored, never overwritten
func (r *ReleaseRepository) Create(ctx context.Context, release *domain.Release) (*domain.Release, error) {
	query := `
		INSERT INTO releases (id, version_release_id, variable_set_release_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		release.ID,
		release.VersionReleaseID,
		release.VariableSetReleaseID,
	).Scan(&release.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create release: %w", err)
	}
	return release, nil
}

// Update replaces the release row by id, inserting when absent
func (r *ReleaseRepository) Update(ctx context.Context, release *domain.Release) (*domain.Release, error) {
	query := `
		INSERT INTO releases (id, version_release_id, variable_set_release_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET version_release_id = EXCLUDED.version_release_id,
		    variable_set_release_id = EXCLUDED.variable_set_release_id
		WHERE releases.version_release_id IN (
			SELECT vr.id FROM version_releases vr
			JOIN release_targets rt ON rt.id = vr.release_target_id
			JOIN resources res ON res.id = rt.resource_id
			WHERE res.workspace_id = $4
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		release.ID,
		release.VersionReleaseID,
		release.VariableSetReleaseID,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update release: %w", err)
	}
	return release, nil
}

// Delete removes the release and returns the pre-delete snapshot
func (r *ReleaseRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Release, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM releases rel
		USING version_releases vr, release_targets rt, resources res
		WHERE rel.id = $1
		  AND vr.id = rel.version_release_id
		  AND rt.id = vr.release_target_id
		  AND res.id = rt.resource_id
		  AND res.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete release: %w", err)
	}
	return existing, nil
}

// Exists reports whether a release with the given id exists in the
// workspace
func (r *ReleaseRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM releases rel
			JOIN version_releases vr ON vr.id = rel.version_release_id
			JOIN release_targets rt ON rt.id = vr.release_target_id
			JOIN resources res ON res.id = rt.resource_id
			WHERE rel.id = $1 AND res.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check release existence: %w", err)
	}
	return exists, nil
}
