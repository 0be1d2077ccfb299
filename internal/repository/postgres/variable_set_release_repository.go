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

var (
	_ repository.Repository[*domain.VariableSetRelease]      = (*VariableSetReleaseRepository)(nil)
	_ repository.Repository[*domain.VariableSetReleaseValue] = (*VariableSetReleaseValueRepository)(nil)
)

// VariableSetReleaseRepository handles variable set release data operations
// in PostgreSQL
type VariableSetReleaseRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewVariableSetReleaseRepository creates a new variable set release
// repository scoped to a workspace
func NewVariableSetReleaseRepository(db *database.PostgresDB, workspaceID uuid.UUID) *VariableSetReleaseRepository {
	return &VariableSetReleaseRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a variable set release by id, or nil when absent
func (r *VariableSetReleaseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.VariableSetRelease, error) {
	query := `
		SELECT vsr.id, vsr.release_target_id, vsr.created_at
		FROM variable_set_releases vsr
		JOIN release_targets rt ON rt.id = vsr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE vsr.id = $1 AND res.workspace_id = $2
	`

	var release domain.VariableSetRelease
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&release.ID,
		&release.ReleaseTargetID,
		&release.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get variable set release: %w", err)
	}
	return &release, nil
}

// GetAll retrieves every variable set release in the workspace
func (r *VariableSetReleaseRepository) GetAll(ctx context.Context) ([]*domain.VariableSetRelease, error) {
	query := `
		SELECT vsr.id, vsr.release_target_id, vsr.created_at
		FROM variable_set_releases vsr
		JOIN release_targets rt ON rt.id = vsr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE res.workspace_id = $1
		ORDER BY vsr.created_at, vsr.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variable set releases: %w", err)
	}
	defer rows.Close()

	var releases []*domain.VariableSetRelease
	for rows.Next() {
		var release domain.VariableSetRelease
		if err := rows.Scan(&release.ID, &release.ReleaseTargetID, &release.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variable set release: %w", err)
		}
		releases = append(releases, &release)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list variable set releases: %w", err)
	}
	return releases, nil
}

// Create inserts a variable set release; a duplicate id is ignored, never
// overwritten
func (r *VariableSetReleaseRepository) Create(ctx context.Context, release *domain.VariableSetRelease) (*domain.VariableSetRelease, error) {
	query := `
		INSERT INTO variable_set_releases (id, release_target_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, release.ID, release.ReleaseTargetID).Scan(&release.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create variable set release: %w", err)
	}
	return release, nil
}

// Update replaces the variable set release row by id, inserting when absent
func (r *VariableSetReleaseRepository) Update(ctx context.Context, release *domain.VariableSetRelease) (*domain.VariableSetRelease, error) {
	query := `
		INSERT INTO variable_set_releases (id, release_target_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET release_target_id = EXCLUDED.release_target_id
		WHERE variable_set_releases.release_target_id IN (
			SELECT rt.id FROM release_targets rt
			JOIN resources res ON res.id = rt.resource_id
			WHERE res.workspace_id = $3
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query, release.ID, release.ReleaseTargetID, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to update variable set release: %w", err)
	}
	return release, nil
}

// Delete removes the variable set release and returns the pre-delete
// snapshot
func (r *VariableSetReleaseRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.VariableSetRelease, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM variable_set_releases vsr
		USING release_targets rt, resources res
		WHERE vsr.id = $1 AND rt.id = vsr.release_target_id AND res.id = rt.resource_id AND res.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete variable set release: %w", err)
	}
	return existing, nil
}

// Exists reports whether a variable set release with the given id exists in
// the workspace
func (r *VariableSetReleaseRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM variable_set_releases vsr
			JOIN release_targets rt ON rt.id = vsr.release_target_id
			JOIN resources res ON res.id = rt.resource_id
			WHERE vsr.id = $1 AND res.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check variable set release existence: %w", err)
	}
	return exists, nil
}

// VariableSetReleaseValueRepository handles the link rows joining variable
// set releases to value snapshots
type VariableSetReleaseValueRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewVariableSetReleaseValueRepository creates a new link row repository
// scoped to a workspace
func NewVariableSetReleaseValueRepository(db *database.PostgresDB, workspaceID uuid.UUID) *VariableSetReleaseValueRepository {
	return &VariableSetReleaseValueRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a link row by id, or nil when absent
func (r *VariableSetReleaseValueRepository) Get(ctx context.Context, id uuid.UUID) (*domain.VariableSetReleaseValue, error) {
	query := `
		SELECT vsrv.id, vsrv.variable_set_release_id, vsrv.variable_value_snapshot_id
		FROM variable_set_release_values vsrv
		JOIN variable_set_releases vsr ON vsr.id = vsrv.variable_set_release_id
		JOIN release_targets rt ON rt.id = vsr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE vsrv.id = $1 AND res.workspace_id = $2
	`

	var value domain.VariableSetReleaseValue
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&value.ID,
		&value.VariableSetReleaseID,
		&value.VariableValueSnapshotID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get variable set release value: %w", err)
	}
	return &value, nil
}

// GetAll retrieves every link row in the workspace
func (r *VariableSetReleaseValueRepository) GetAll(ctx context.Context) ([]*domain.VariableSetReleaseValue, error) {
	query := `
		SELECT vsrv.id, vsrv.variable_set_release_id, vsrv.variable_value_snapshot_id
		FROM variable_set_release_values vsrv
		JOIN variable_set_releases vsr ON vsr.id = vsrv.variable_set_release_id
		JOIN release_targets rt ON rt.id = vsr.release_target_id
		JOIN resources res ON res.id = rt.resource_id
		WHERE res.workspace_id = $1
		ORDER BY vsrv.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variable set release values: %w", err)
	}
	defer rows.Close()

	var values []*domain.VariableSetReleaseValue
	for rows.Next() {
		var value domain.VariableSetReleaseValue
		if err := rows.Scan(&value.ID, &value.VariableSetReleaseID, &value.VariableValueSnapshotID); err != nil {
			return nil, fmt.Errorf("failed to scan variable set release value: %w", err)
		}
		values = append(values, &value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list variable set release values: %w", err)
	}
	return values, nil
}

// Create inserts a link row; a duplicate id is ignored, never overwritten
func (r *VariableSetReleaseValueRepository) Create(ctx context.Context, value *domain.VariableSetReleaseValue) (*domain.VariableSetReleaseValue, error) {
	query := `
		INSERT INTO variable_set_release_values (id, variable_set_release_id, variable_value_snapshot_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		value.ID,
		value.VariableSetReleaseID,
		value.VariableValueSnapshotID,
	); err != nil {
		return nil, fmt.Errorf("failed to create variable set release value: %w", err)
	}
	return value, nil
}

// Update replaces the link row by id, inserting when absent
func (r *VariableSetReleaseValueRepository) Update(ctx context.Context, value *domain.VariableSetReleaseValue) (*domain.VariableSetReleaseValue, error) {
	query := `
		INSERT INTO variable_set_release_values (id, variable_set_release_id, variable_value_snapshot_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET variable_set_release_id = EXCLUDED.variable_set_release_id,
		    variable_value_snapshot_id = EXCLUDED.variable_value_snapshot_id
		WHERE variable_set_release_values.variable_set_release_id IN (
			SELECT vsr.id FROM variable_set_releases vsr
			JOIN release_targets rt ON rt.id = vsr.release_target_id
			JOIN resources res ON res.id = rt.resource_id
			WHERE res.workspace_id = $4
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		value.ID,
		value.VariableSetReleaseID,
		value.VariableValueSnapshotID,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update variable set release value: %w", err)
	}
	return value, nil
}

// Delete removes the link row and returns the pre-delete snapshot
func (r *VariableSetReleaseValueRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.VariableSetReleaseValue, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM variable_set_release_values vsrv
		USING variable_set_releases vsr, release_targets rt, resources res
		WHERE vsrv.id = $1
		  AND vsr.id = vsrv.variable_set_release_id
		  AND rt.id = vsr.release_target_id
		  AND res.id = rt.resource_id
		  AND res.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete variable set release value: %w", err)
	}
	return existing, nil
}

// Exists reports whether a link row with the given id exists in the
// workspace
func (r *VariableSetReleaseValueRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM variable_set_release_values vsrv
			JOIN variable_set_releases vsr ON vsr.id = vsrv.variable_set_release_id
			JOIN release_targets rt ON rt.id = vsr.release_target_id
			JOIN resources res ON res.id = rt.resource_id
			WHERE vsrv.id = $1 AND res.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check variable set release value existence: %w", err)
	}
	return exists, nil
}
