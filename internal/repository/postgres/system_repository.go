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

var _ repository.Repository[*domain.System] = (*SystemRepository)(nil)

// SystemRepository handles system data operations in PostgreSQL
type SystemRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewSystemRepository creates a new system repository scoped to a workspace
func NewSystemRepository(db *database.PostgresDB, workspaceID uuid.UUID) *SystemRepository {
	return &SystemRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a system by id, or nil when absent in this workspace
func (r *SystemRepository) Get(ctx context.Context, id uuid.UUID) (*domain.System, error) {
	query := `
		SELECT id, workspace_id, name, slug, description, created_at, updated_at
		FROM systems
		WHERE id = $1 AND workspace_id = $2
	`

	var system domain.System
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&system.ID,
		&system.WorkspaceID,
		&system.Name,
		&system.Slug,
		&system.Description,
		&system.CreatedAt,
		&system.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get system: %w", err)
	}
	return &system, nil
}

// GetAll retrieves every system in the workspace
func (r *SystemRepository) GetAll(ctx context.Context) ([]*domain.System, error) {
	query := `
		SELECT id, workspace_id, name, slug, description, created_at, updated_at
		FROM systems
		WHERE workspace_id = $1
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}
	defer rows.Close()

	var systems []*domain.System
	for rows.Next() {
		var system domain.System
		if err := rows.Scan(
			&system.ID,
			&system.WorkspaceID,
			&system.Name,
			&system.Slug,
			&system.Description,
			&system.CreatedAt,
			&system.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan system: %w", err)
		}
		systems = append(systems, &system)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}
	return systems, nil
}

// Create inserts a system; a duplicate id is ignored, never overwritten
func (r *SystemRepository) Create(ctx context.Context, system *domain.System) (*domain.System, error) {
	query := `
		INSERT INTO systems (id, workspace_id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		system.ID,
		r.workspaceID,
		system.Name,
		system.Slug,
		system.Description,
	).Scan(&system.CreatedAt, &system.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create system: %w", err)
	}

	system.WorkspaceID = r.workspaceID
	return system, nil
}

// Update replaces the system row by id
func (r *SystemRepository) Update(ctx context.Context, system *domain.System) (*domain.System, error) {
	query := `
		INSERT INTO systems (id, workspace_id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    slug = EXCLUDED.slug,
		    description = EXCLUDED.description,
		    updated_at = NOW()
		WHERE systems.workspace_id = $2
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		system.ID,
		r.workspaceID,
		system.Name,
		system.Slug,
		system.Description,
	); err != nil {
		return nil, fmt.Errorf("failed to update system: %w", err)
	}

	system.WorkspaceID = r.workspaceID
	return system, nil
}

// Delete removes the system and returns the pre-delete snapshot
func (r *SystemRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.System, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM systems WHERE id = $1 AND workspace_id = $2`, id, r.workspaceID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete system: %w", err)
	}
	return existing, nil
}

// Exists reports whether a system with the given id exists in the workspace
func (r *SystemRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM systems WHERE id = $1 AND workspace_id = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check system existence: %w", err)
	}
	return exists, nil
}
