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

var _ repository.Repository[*domain.VersionRelease] = (*VersionReleaseRepository)(nil)

// VersionReleaseRepository handles version release data operations in
// PostgreSQL. Version releases reach their workspace through the release
// target's resource.
type VersionReleaseRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewVersionReleaseRepository creates a new version release repository
// scoped to a workspace
func NewVersionReleaseRepository(db *database.PostgresDB, workspaceID uuid.UUID) *VersionReleaseRepository {
	return &VersionReleaseRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a version release by id, or nil when absent
func (r *VersionReleaseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.VersionRelease, error) {
	query := `
		SELECT vr.id, vr.release_target_id, vr.version_id, vr.created_at
		FROM version_releases vr
		JOIN release_targets rt ON rt.id = vr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE vr.id = $1 AND res.workspace_id = $2
	`

	var release domain.VersionRelease
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&release.ID,
		&release.ReleaseTargetID,
		&release.VersionID,
		&release.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get version release: %w", err)
	}
	return &release, nil
}

// GetAll retrieves every version release in the workspace
func (r *VersionReleaseRepository) GetAll(ctx context.Context) ([]*domain.VersionRelease, error) {
	query := `
		SELECT vr.id, vr.release_target_id, vr.version_id, vr.created_at
		FROM version_releases vr
		JOIN release_targets rt ON rt.id = vr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE res.workspace_id = $1
		ORDER BY vr.created_at, vr.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list version releases: %w", err)
	}
	defer rows.Close()

	var releases []*domain.VersionRelease
	for rows.Next() {
		var release domain.VersionRelease
		if err := rows.Scan(
			&release.ID,
			&release.ReleaseTargetID,
			&release.VersionID,
			&release.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan version release: %w", err)
		}
		releases = append(releases, &release)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list version releases: %w", err)
	}
	return releases, nil
}

// Create inserts a version release; a duplicate id is ignored, never
// overwritten
func (r *VersionReleaseRepository) Create(ctx context.Context, release *domain.VersionRelease) (*domain.VersionRelease, error) {
	query := `
		INSERT INTO version_releases (id, release_target_id, version_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		release.ID,
		release.ReleaseTargetID,
		release.VersionID,
	).Scan(&release.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create version release: %w", err)
	}
	return release, nil
}

// Update replaces the version release row by id, inserting when absent
func (r *VersionReleaseRepository) Update(ctx context.Context, release *domain.VersionRelease) (*domain.VersionRelease, error) {
	query := `
		INSERT INTO version_releases (id, release_target_id, version_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET release_target_id = EXCLUDED.release_target_id,
		    version_id = EXCLUDED.version_id
		WHERE version_releases.release_target_id IN (
			SELECT rt.id FROM release_targets rt
			JOIN resources res ON res.id = rt.resource_id
			WHERE res.workspace_id = $4
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		release.ID,
		release.ReleaseTargetID,
		release.VersionID,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update version release: %w", err)
	}
	return release, nil
}

// Delete removes the version release and returns the pre-delete snapshot
func (r *VersionReleaseRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.VersionRelease, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM version_releases vr
		USING release_targets rt, resources res
		WHERE vr.id = $1 AND rt.id = vr.release_target_id AND res.id = rt.resource_id AND res.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete version release: %w", err)
	}
	return existing, nil
}

// Exists reports whether a version release with the given id exists in the
// workspace
func (r *VersionReleaseRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM version_releases vr
			JOIN release_targets rt ON rt.id = vr.release_target_id
			JOIN resources res ON res.id = rt.resource_id
			WHERE vr.id = $1 AND res.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check version release existence: %w", err)
	}
	return exists, nil
}
