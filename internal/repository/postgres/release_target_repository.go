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

var _ repository.Repository[*domain.ReleaseTarget] = (*ReleaseTargetRepository)(nil)

// ReleaseTargetRepository handles release target data operations in
// PostgreSQL. Reads return the "full" shape: the tuple row enriched with
// its resource (metadata folded in), environment, and deployment. The
// enrichment is a read-time join product, not a stored shape.
type ReleaseTargetRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewReleaseTargetRepository creates a new release target repository scoped
// to a workspace
func NewReleaseTargetRepository(db *database.PostgresDB, workspaceID uuid.UUID) *ReleaseTargetRepository {
	return &ReleaseTargetRepository{db: db, workspaceID: workspaceID}
}

const fullReleaseTargetQuery = `
	SELECT rt.id, rt.resource_id, rt.environment_id, rt.deployment_id,
	       rt.desired_release_id, rt.desired_version_id, rt.created_at,
	       r.id, r.workspace_id, r.name, r.kind, r.identifier, r.version, r.config,
	       r.deleted_at, r.created_at, r.updated_at,
	       e.id, e.system_id, e.name, e.description, e.resource_filter, e.created_at, e.updated_at,
	       d.id, d.system_id, d.name, d.slug, d.description, d.job_agent_id, d.created_at, d.updated_at,
	       m.key, m.value
	FROM release_targets rt
	JOIN resources r ON r.id = rt.resource_id
	JOIN environments e ON e.id = rt.environment_id
	JOIN deployments d ON d.id = rt.deployment_id
	LEFT JOIN resource_metadata m ON m.resource_id = r.id
	WHERE r.workspace_id = $1 AND r.deleted_at IS NULL
`

// Get retrieves a full release target, or nil when the id does not resolve
// inside the repository's workspace
func (r *ReleaseTargetRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ReleaseTarget, error) {
	rows, err := r.db.Pool.Query(ctx, fullReleaseTargetQuery+` AND rt.id = $2`, r.workspaceID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get release target: %w", err)
	}
	defer rows.Close()

	targets, err := foldReleaseTargetRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get release target: %w", err)
	}
	if len(targets) == 0 {
		return nil, nil
	}
	return targets[0], nil
}

// GetAll retrieves every full release target in the workspace in one
// aggregate query
func (r *ReleaseTargetRepository) GetAll(ctx context.Context) ([]*domain.ReleaseTarget, error) {
	rows, err := r.db.Pool.Query(ctx, fullReleaseTargetQuery+` ORDER BY rt.id`, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list release targets: %w", err)
	}
	defer rows.Close()

	targets, err := foldReleaseTargetRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list release targets: %w", err)
	}
	return targets, nil
}

// Create inserts a release target after verifying its resource belongs to
// this workspace; duplicates (by id or tuple) are ignored, never overwritten
func (r *ReleaseTargetRepository) Create(ctx context.Context, target *domain.ReleaseTarget) (*domain.ReleaseTarget, error) {
	if err := r.checkResourceScope(ctx, target.ResourceID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO release_targets (id, resource_id, environment_id, deployment_id, desired_release_id, desired_version_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT DO NOTHING
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		target.ID,
		target.ResourceID,
		target.EnvironmentID,
		target.DeploymentID,
		target.DesiredReleaseID,
		target.DesiredVersionID,
	).Scan(&target.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create release target: %w", err)
	}
	return target, nil
}

// Update replaces the release target row by id
func (r *ReleaseTargetRepository) Update(ctx context.Context, target *domain.ReleaseTarget) (*domain.ReleaseTarget, error) {
	if err := r.checkResourceScope(ctx, target.ResourceID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO release_targets (id, resource_id, environment_id, deployment_id, desired_release_id, desired_version_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET resource_id = EXCLUDED.resource_id,
		    environment_id = EXCLUDED.environment_id,
		    deployment_id = EXCLUDED.deployment_id,
		    desired_release_id = EXCLUDED.desired_release_id,
		    desired_version_id = EXCLUDED.desired_version_id
		WHERE release_targets.resource_id IN (
			SELECT id FROM resources WHERE workspace_id = $7
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		target.ID,
		target.ResourceID,
		target.EnvironmentID,
		target.DeploymentID,
		target.DesiredReleaseID,
		target.DesiredVersionID,
		r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to update release target: %w", err)
	}
	return target, nil
}

// Delete removes the release target and returns the pre-delete snapshot
func (r *ReleaseTargetRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.ReleaseTarget, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `
		DELETE FROM release_targets rt
		USING resources r
		WHERE rt.id = $1 AND r.id = rt.resource_id AND r.workspace_id = $2
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete release target: %w", err)
	}
	return existing, nil
}

// Exists reports whether a release target with the given id exists in the
// workspace
func (r *ReleaseTargetRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM release_targets rt
			JOIN resources r ON r.id = rt.resource_id
			WHERE rt.id = $1 AND r.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check release target existence: %w", err)
	}
	return exists, nil
}

func (r *ReleaseTargetRepository) checkResourceScope(ctx context.Context, resourceID uuid.UUID) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM resources WHERE id = $1 AND workspace_id = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, resourceID, r.workspaceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check resource scope: %w", err)
	}
	if !exists {
		return fmt.Errorf("resource %s not found in workspace", resourceID)
	}
	return nil
}

// foldReleaseTargetRows groups the joined rows by release target id.
// The resource's metadata rows fold into its map exactly as in
// foldResourceRows; the environment and deployment repeat on every row and
// are taken from the first.
func foldReleaseTargetRows(rows pgx.Rows) ([]*domain.ReleaseTarget, error) {
	var (
		order []uuid.UUID
		byID  = make(map[uuid.UUID]*domain.ReleaseTarget)
	)

	for rows.Next() {
		var (
			target     domain.ReleaseTarget
			resource   domain.Resource
			env        domain.Environment
			deployment domain.Deployment
			key        *string
			value      *string
		)
		if err := rows.Scan(
			&target.ID,
			&target.ResourceID,
			&target.EnvironmentID,
			&target.DeploymentID,
			&target.DesiredReleaseID,
			&target.DesiredVersionID,
			&target.CreatedAt,
			&resource.ID,
			&resource.WorkspaceID,
			&resource.Name,
			&resource.Kind,
			&resource.Identifier,
			&resource.Version,
			&resource.Config,
			&resource.DeletedAt,
			&resource.CreatedAt,
			&resource.UpdatedAt,
			&env.ID,
			&env.SystemID,
			&env.Name,
			&env.Description,
			&env.ResourceFilter,
			&env.CreatedAt,
			&env.UpdatedAt,
			&deployment.ID,
			&deployment.SystemID,
			&deployment.Name,
			&deployment.Slug,
			&deployment.Description,
			&deployment.JobAgentID,
			&deployment.CreatedAt,
			&deployment.UpdatedAt,
			&key,
			&value,
		); err != nil {
			return nil, err
		}

		existing, ok := byID[target.ID]
		if !ok {
			resource.Metadata = map[string]string{}
			target.Resource = &resource
			target.Environment = &env
			target.Deployment = &deployment
			existing = &target
			byID[target.ID] = existing
			order = append(order, target.ID)
		}
		if key != nil && value != nil {
			existing.Resource.Metadata[*key] = *value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	targets := make([]*domain.ReleaseTarget, 0, len(order))
	for _, id := range order {
		targets = append(targets, byID[id])
	}
	return targets, nil
}
