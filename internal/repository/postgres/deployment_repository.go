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

var _ repository.Repository[*domain.Deployment] = (*DeploymentRepository)(nil)

// DeploymentRepository handles deployment data operations in PostgreSQL.
// Deployments reach their workspace through the owning system.
type DeploymentRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewDeploymentRepository creates a new deployment repository scoped to a workspace
func NewDeploymentRepository(db *database.PostgresDB, workspaceID uuid.UUID) *DeploymentRepository {
	return &DeploymentRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a deployment by id, or nil when absent in this workspace
func (r *DeploymentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	query := `
		SELECT d.id, d.system_id, d.name, d.slug, d.description, d.job_agent_id, d.created_at, d.updated_at
		FROM deployments d
		JOIN systems s ON s.id = d.system_id
		WHERE d.id = $1 AND s.workspace_id = $2
	`

	var deployment domain.Deployment
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&deployment.ID,
		&deployment.SystemID,
		&deployment.Name,
		&deployment.Slug,
		&deployment.Description,
		&deployment.JobAgentID,
		&deployment.CreatedAt,
		&deployment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	return &deployment, nil
}

// GetAll retrieves every deployment in the workspace
func (r *DeploymentRepository) GetAll(ctx context.Context) ([]*domain.Deployment, error) {
	query := `
		SELECT d.id, d.system_id, d.name, d.slug, d.description, d.job_agent_id, d.created_at, d.updated_at
		FROM deployments d
		JOIN systems s ON s.id = d.system_id
		WHERE s.workspace_id = $1
		ORDER BY d.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*domain.Deployment
	for rows.Next() {
		var deployment domain.Deployment
		if err := rows.Scan(
			&deployment.ID,
			&deployment.SystemID,
			&deployment.Name,
			&deployment.Slug,
			&deployment.Description,
			&deployment.JobAgentID,
			&deployment.CreatedAt,
			&deployment.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, &deployment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return deployments, nil
}

// Create inserts a deployment after verifying the owning system belongs to
// this workspace; a duplicate id is ignored, never overwritten
func (r *DeploymentRepository) Create(ctx context.Context, deployment *domain.Deployment) (*domain.Deployment, error) {
	if err := r.checkSystemScope(ctx, deployment.SystemID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO deployments (id, system_id, name, slug, description, job_agent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		deployment.ID,
		deployment.SystemID,
		deployment.Name,
		deployment.Slug,
		deployment.Description,
		deployment.JobAgentID,
	).Scan(&deployment.CreatedAt, &deployment.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}
	return deployment, nil
}

// Update replaces the deployment row by id
func (r *DeploymentRepository) Update(ctx context.Context, deployment *domain.Deployment) (*domain.Deployment, error) {
	if err := r.checkSystemScope(ctx, deployment.SystemID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO deployments (id, system_id, name, slug, description, job_agent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET system_id = EXCLUDED.system_id,
		    name = EXCLUDED.name,
		    slug = EXCLUDED.slug,
		    description = EXCLUDED.description,
		    job_agent_id = EXCLUDED.job_agent_id,
		    updated_at = NOW()
		WHERE deployments.system_id IN (
			SELECT id FROM systems WHERE workspace_id = $7
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		deployment.ID,
		deployment.SystemID,
		deployment.Name,
		deployment.Slug,
		deployment.Description,
		deployment.JobAgentID,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update deployment: %w", err)
	}
	return deployment, nil
}

// Delete removes the deployment and returns the pre-delete snapshot
func (r *DeploymentRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM deployments d
		USING systems s
		WHERE d.id = $1 AND s.id = d.system_id AND s.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete deployment: %w", err)
	}
	return existing, nil
}

// Exists reports whether a deployment with the given id exists in the workspace
func (r *DeploymentRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM deployments d
			JOIN systems s ON s.id = d.system_id
			WHERE d.id = $1 AND s.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deployment existence: %w", err)
	}
	return exists, nil
}

func (r *DeploymentRepository) checkSystemScope(ctx context.Context, systemID uuid.UUID) error {
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
