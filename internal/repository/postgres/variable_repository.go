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

var _ repository.Repository[*domain.DeploymentVariable] = (*VariableRepository)(nil)

// VariableRepository handles deployment variable data operations in
// PostgreSQL. Variables reach their workspace through the owning
// deployment's system.
type VariableRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewVariableRepository creates a new deployment variable repository
// scoped to a workspace
func NewVariableRepository(db *database.PostgresDB, workspaceID uuid.UUID) *VariableRepository {
	return &VariableRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a deployment variable by id, or nil when absent in this
// workspace
func (r *VariableRepository) Get(ctx context.Context, id uuid.UUID) (*domain.DeploymentVariable, error) {
	query := `
		SELECT v.id, v.deployment_id, v.key, v.description, v.default_value_id, v.created_at, v.updated_at
		FROM deployment_variables v
		JOIN deployments d ON d.id = v.deployment_id
		JOIN systems s ON s.id = d.system_id
		WHERE v.id = $1 AND s.workspace_id = $2
	`

	var variable domain.DeploymentVariable
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&variable.ID,
		&variable.DeploymentID,
		&variable.Key,
		&variable.Description,
		&variable.DefaultValueID,
		&variable.CreatedAt,
		&variable.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deployment variable: %w", err)
	}
	return &variable, nil
}

// GetAll retrieves every deployment variable in the workspace
func (r *VariableRepository) GetAll(ctx context.Context) ([]*domain.DeploymentVariable, error) {
	query := `
		SELECT v.id, v.deployment_id, v.key, v.description, v.default_value_id, v.created_at, v.updated_at
		FROM deployment_variables v
		JOIN deployments d ON d.id = v.deployment_id
		JOIN systems s ON s.id = d.system_id
		WHERE s.workspace_id = $1
		ORDER BY v.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment variables: %w", err)
	}
	defer rows.Close()

	var variables []*domain.DeploymentVariable
	for rows.Next() {
		var variable domain.DeploymentVariable
		if err := rows.Scan(
			&variable.ID,
			&variable.DeploymentID,
			&variable.Key,
			&variable.Description,
			&variable.DefaultValueID,
			&variable.CreatedAt,
			&variable.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deployment variable: %w", err)
		}
		variables = append(variables, &variable)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list deployment variables: %w", err)
	}
	return variables, nil
}

// Create inserts a deployment variable; a duplicate id is ignored, never
// overwritten
func (r *VariableRepository) Create(ctx context.Context, variable *domain.DeploymentVariable) (*domain.DeploymentVariable, error) {
	if err := r.checkDeploymentScope(ctx, variable.DeploymentID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO deployment_variables (id, deployment_id, key, description, default_value_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		variable.ID,
		variable.DeploymentID,
		variable.Key,
		variable.Description,
		variable.DefaultValueID,
	).Scan(&variable.CreatedAt, &variable.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create deployment variable: %w", err)
	}
	return variable, nil
}

// Update replaces the deployment variable row by id. DefaultValueID must
// reference one of the variable's own values; the predicate on the value's
// variable_id enforces the invariant at write time.
func (r *VariableRepository) Update(ctx context.Context, variable *domain.DeploymentVariable) (*domain.DeploymentVariable, error) {
	if err := r.checkDeploymentScope(ctx, variable.DeploymentID); err != nil {
		return nil, err
	}
	if variable.DefaultValueID != nil {
		var owned bool
		query := `SELECT EXISTS(SELECT 1 FROM deployment_variable_values WHERE id = $1 AND variable_id = $2)`
		if err := r.db.Pool.QueryRow(ctx, query, *variable.DefaultValueID, variable.ID).Scan(&owned); err != nil {
			return nil, fmt.Errorf("failed to check default value ownership: %w", err)
		}
		if !owned {
			return nil, fmt.Errorf("default value %s does not belong to variable %s", *variable.DefaultValueID, variable.ID)
		}
	}

	query := `
		INSERT INTO deployment_variables (id, deployment_id, key, description, default_value_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET deployment_id = EXCLUDED.deployment_id,
		    key = EXCLUDED.key,
		    description = EXCLUDED.description,
		    default_value_id = EXCLUDED.default_value_id,
		    updated_at = NOW()
		WHERE deployment_variables.deployment_id IN (
			SELECT d.id FROM deployments d
			JOIN systems s ON s.id = d.system_id
			WHERE s.workspace_id = $6
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		variable.ID,
		variable.DeploymentID,
		variable.Key,
		variable.Description,
		variable.DefaultValueID,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update deployment variable: %w", err)
	}
	return variable, nil
}

// Delete removes the deployment variable and returns the pre-delete snapshot
func (r *VariableRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.DeploymentVariable, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM deployment_variables v
		USING deployments d, systems s
		WHERE v.id = $1 AND d.id = v.deployment_id AND s.id = d.system_id AND s.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete deployment variable: %w", err)
	}
	return existing, nil
}

// Exists reports whether a deployment variable with the given id exists in
// the workspace
func (r *VariableRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM deployment_variables v
			JOIN deployments d ON d.id = v.deployment_id
			JOIN systems s ON s.id = d.system_id
			WHERE v.id = $1 AND s.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deployment variable existence: %w", err)
	}
	return exists, nil
}

func (r *VariableRepository) checkDeploymentScope(ctx context.Context, deploymentID uuid.UUID) error {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM deployments d
			JOIN systems s ON s.id = d.system_id
			WHERE d.id = $1 AND s.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, deploymentID, r.workspaceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check deployment scope: %w", err)
	}
	if !exists {
		return fmt.Errorf("deployment %s not found in workspace", deploymentID)
	}
	return nil
}
