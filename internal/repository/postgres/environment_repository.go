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

var _ repository.Repository[*domain.Environment] = (*EnvironmentRepository)(nil)

// EnvironmentRepository handles environment data operations in PostgreSQL.
// Environments reach their workspace through the owning system.
type EnvironmentRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewEnvironmentRepository creates a new environment repository scoped to a workspace
func NewEnvironmentRepository(db *database.PostgresDB, workspaceID uuid.UUID) *EnvironmentRepository {
	return &EnvironmentRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves an environment by id, or nil when absent in this workspace
func (r *EnvironmentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Environment, error) {
	query := `
		SELECT e.id, e.system_id, e.name, e.description, e.resource_filter, e.created_at, e.updated_at
		FROM environments e
		JOIN systems s ON s.id = e.system_id
		WHERE e.id = $1 AND s.workspace_id = $2
	`

	var env domain.Environment
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&env.ID,
		&env.SystemID,
		&env.Name,
		&env.Description,
		&env.ResourceFilter,
		&env.CreatedAt,
		&env.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}
	return &env, nil
}

// GetAll retrieves every environment in the workspace
func (r *EnvironmentRepository) GetAll(ctx context.Context) ([]*domain.Environment, error) {
	query := `
		SELECT e.id, e.system_id, e.name, e.description, e.resource_filter, e.created_at, e.updated_at
		FROM environments e
		JOIN systems s ON s.id = e.system_id
		WHERE s.workspace_id = $1
		ORDER BY e.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	defer rows.Close()

	var envs []*domain.Environment
	for rows.Next() {
		var env domain.Environment
		if err := rows.Scan(
			&env.ID,
			&env.SystemID,
			&env.Name,
			&env.Description,
			&env.ResourceFilter,
			&env.CreatedAt,
			&env.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan environment: %w", err)
		}
		envs = append(envs, &env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	return envs, nil
}

// Create inserts an environment after verifying the owning system belongs
// to this workspace; a duplicate id is ignored, never overwritten
func (r *EnvironmentRepository) Create(ctx context.Context, env *domain.Environment) (*domain.Environment, error) {
	if err := r.checkSystemScope(ctx, env.SystemID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO environments (id, system_id, name, description, resource_filter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		env.ID,
		env.SystemID,
		env.Name,
		env.Description,
		env.ResourceFilter,
	).Scan(&env.CreatedAt, &env.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	return env, nil
}

// Update replaces the environment row by id
func (r *EnvironmentRepository) Update(ctx context.Context, env *domain.Environment) (*domain.Environment, error) {
	if err := r.checkSystemScope(ctx, env.SystemID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO environments (id, system_id, name, description, resource_filter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET system_id = EXCLUDED.system_id,
		    name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    resource_filter = EXCLUDED.resource_filter,
		    updated_at = NOW()
		WHERE environments.system_id IN (
			SELECT id FROM systems WHERE workspace_id = $6
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		env.ID,
		env.SystemID,
		env.Name,
		env.Description,
		env.ResourceFilter,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update environment: %w", err)
	}
	return env, nil
}

// Delete removes the environment and returns the pre-delete snapshot
func (r *EnvironmentRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Environment, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM environments e
		USING systems s
		WHERE e.id = $1 AND s.id = e.system_id AND s.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete environment: %w", err)
	}
	return existing, nil
}

// Exists reports whether an environment with the given id exists in the workspace
func (r *EnvironmentRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM environments e
			JOIN systems s ON s.id = e.system_id
			WHERE e.id = $1 AND s.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check environment existence: %w", err)
	}
	return exists, nil
}

// checkSystemScope verifies the system belongs to this workspace. A system
// in another workspace reads as absent, matching the contract's not-found
// semantics.
func (r *EnvironmentRepository) checkSystemScope(ctx context.Context, systemID uuid.UUID) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM systems WHERE id = $1 AND workspace_id = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, systemID, r.workspaceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check system scope: %w", err)
	}
	if !exists {
		return fmt.Errorf("system %s not found in workspace", systemID)
	}
	return nil
}
