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

// Interface assertion to ensure ResourceRepository implements the contract
var _ repository.Repository[*domain.Resource] = (*ResourceRepository)(nil)

// ResourceRepository handles resource data operations in PostgreSQL.
// Metadata rows are folded into the resource's map on every read.
type ResourceRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewResourceRepository creates a new resource repository scoped to a workspace
func NewResourceRepository(db *database.PostgresDB, workspaceID uuid.UUID) *ResourceRepository {
	return &ResourceRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a resource with its metadata map, or nil when the id does
// not resolve inside the repository's workspace
func (r *ResourceRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	query := `
		SELECT r.id, r.workspace_id, r.name, r.kind, r.identifier, r.version, r.config,
		       r.deleted_at, r.created_at, r.updated_at, m.key, m.value
		FROM resources r
		LEFT JOIN resource_metadata m ON m.resource_id = r.id
		WHERE r.workspace_id = $1 AND r.id = $2 AND r.deleted_at IS NULL
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	defer rows.Close()

	resources, err := foldResourceRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	if len(resources) == 0 {
		return nil, nil
	}
	return resources[0], nil
}

// GetAll retrieves every live resource in the workspace with folded metadata
func (r *ResourceRepository) GetAll(ctx context.Context) ([]*domain.Resource, error) {
	query := `
		SELECT r.id, r.workspace_id, r.name, r.kind, r.identifier, r.version, r.config,
		       r.deleted_at, r.created_at, r.updated_at, m.key, m.value
		FROM resources r
		LEFT JOIN resource_metadata m ON m.resource_id = r.id
		WHERE r.workspace_id = $1 AND r.deleted_at IS NULL
		ORDER BY r.id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources, err := foldResourceRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// Create inserts a resource and its metadata rows in one transaction.
// A duplicate id is ignored on the resource row, never overwritten.
func (r *ResourceRepository) Create(ctx context.Context, resource *domain.Resource) (*domain.Resource, error) {
	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO resources (id, workspace_id, name, kind, identifier, version, config, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			ON CONFLICT (id) DO NOTHING
			RETURNING created_at, updated_at
		`
		scanErr := tx.QueryRow(ctx, query,
			resource.ID,
			r.workspaceID,
			resource.Name,
			resource.Kind,
			resource.Identifier,
			resource.Version,
			resource.Config,
		).Scan(&resource.CreatedAt, &resource.UpdatedAt)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				// Duplicate id, the existing row wins.
				return nil
			}
			return scanErr
		}

		return insertResourceMetadata(ctx, tx, resource.ID, resource.Metadata)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	resource.WorkspaceID = r.workspaceID
	if resource.Metadata == nil {
		resource.Metadata = map[string]string{}
	}
	return resource, nil
}

// Update replaces the resource row and its metadata. The caller supplies
// the complete entity; missing metadata keys are removed.
func (r *ResourceRepository) Update(ctx context.Context, resource *domain.Resource) (*domain.Resource, error) {
	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO resources (id, workspace_id, name, kind, identifier, version, config, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    kind = EXCLUDED.kind,
			    identifier = EXCLUDED.identifier,
			    version = EXCLUDED.version,
			    config = EXCLUDED.config,
			    updated_at = NOW()
			WHERE resources.workspace_id = $2
		`
		ct, execErr := tx.Exec(ctx, query,
			resource.ID,
			r.workspaceID,
			resource.Name,
			resource.Kind,
			resource.Identifier,
			resource.Version,
			resource.Config,
		)
		if execErr != nil {
			return execErr
		}
		if ct.RowsAffected() == 0 {
			// The id belongs to another workspace; the metadata rows must
			// not be touched either.
			return fmt.Errorf("resource %s not found in workspace", resource.ID)
		}

		if _, execErr := tx.Exec(ctx, `DELETE FROM resource_metadata WHERE resource_id = $1`, resource.ID); execErr != nil {
			return execErr
		}
		return insertResourceMetadata(ctx, tx, resource.ID, resource.Metadata)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update resource: %w", err)
	}

	resource.WorkspaceID = r.workspaceID
	if resource.Metadata == nil {
		resource.Metadata = map[string]string{}
	}
	return resource, nil
}

// Delete removes the resource and returns the pre-delete snapshot, or nil
// when the id is unknown in this workspace
func (r *ResourceRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	err = database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		if _, execErr := tx.Exec(ctx, `DELETE FROM resource_metadata WHERE resource_id = $1`, id); execErr != nil {
			return execErr
		}
		_, execErr := tx.Exec(ctx, `DELETE FROM resources WHERE id = $1 AND workspace_id = $2`, id, r.workspaceID)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete resource: %w", err)
	}

	return existing, nil
}

// Exists reports whether a live resource with the given id exists in the
// workspace
func (r *ResourceRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM resources
			WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check resource existence: %w", err)
	}
	return exists, nil
}

// insertResourceMetadata writes the metadata map as child rows
func insertResourceMetadata(ctx context.Context, tx pgx.Tx, resourceID uuid.UUID, metadata map[string]string) error {
	for key, value := range metadata {
		query := `
			INSERT INTO resource_metadata (id, resource_id, key, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (resource_id, key) DO UPDATE SET value = EXCLUDED.value
		`
		if _, err := tx.Exec(ctx, query, uuid.New(), resourceID, key, value); err != nil {
			return err
		}
	}
	return nil
}

// foldResourceRows groups joined metadata rows by resource id, attaching a
// key/value map to each parent. Resources with no metadata rows get an
// empty map, not a nil one.
func foldResourceRows(rows pgx.Rows) ([]*domain.Resource, error) {
	var (
		order []uuid.UUID
		byID  = make(map[uuid.UUID]*domain.Resource)
	)

	for rows.Next() {
		var (
			resource domain.Resource
			key      *string
			value    *string
		)
		if err := rows.Scan(
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
			&key,
			&value,
		); err != nil {
			return nil, err
		}

		existing, ok := byID[resource.ID]
		if !ok {
			resource.Metadata = map[string]string{}
			existing = &resource
			byID[resource.ID] = existing
			order = append(order, resource.ID)
		}
		if key != nil && value != nil {
			existing.Metadata[*key] = *value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resources := make([]*domain.Resource, 0, len(order))
	for _, id := range order {
		resources = append(resources, byID[id])
	}
	return resources, nil
}
