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

var _ repository.Repository[*domain.VariableValueSnapshot] = (*SnapshotRepository)(nil)

// SnapshotRepository handles variable value snapshot data operations in
// PostgreSQL. Snapshots carry the workspace id directly.
type SnapshotRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewSnapshotRepository creates a new snapshot repository scoped to a
// workspace
func NewSnapshotRepository(db *database.PostgresDB, workspaceID uuid.UUID) *SnapshotRepository {
	return &SnapshotRepository{db: db, workspaceID: workspaceID}
}

// Get retrieves a snapshot by id, or nil when absent
func (r *SnapshotRepository) Get(ctx context.Context, id uuid.UUID) (*domain.VariableValueSnapshot, error) {
	query := `
		SELECT id, workspace_id, key, value, sensitive, created_at
		FROM variable_value_snapshots
		WHERE id = $1 AND workspace_id = $2
	`

	var snapshot domain.VariableValueSnapshot
	err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(
		&snapshot.ID,
		&snapshot.WorkspaceID,
		&snapshot.Key,
		&snapshot.Value,
		&snapshot.Sensitive,
		&snapshot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snapshot, nil
}

// GetAll retrieves every snapshot in the workspace
func (r *SnapshotRepository) GetAll(ctx context.Context) ([]*domain.VariableValueSnapshot, error) {
	query := `
		SELECT id, workspace_id, key, value, sensitive, created_at
		FROM variable_value_snapshots
		WHERE workspace_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.VariableValueSnapshot
	for rows.Next() {
		var snapshot domain.VariableValueSnapshot
		if err := rows.Scan(
			&snapshot.ID,
			&snapshot.WorkspaceID,
			&snapshot.Key,
			&snapshot.Value,
			&snapshot.Sensitive,
			&snapshot.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// Create inserts a snapshot; a duplicate id is ignored, never overwritten
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.VariableValueSnapshot) (*domain.VariableValueSnapshot, error) {
	query := `
		INSERT INTO variable_value_snapshots (id, workspace_id, key, value, sensitive, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		snapshot.ID,
		r.workspaceID,
		snapshot.Key,
		snapshot.Value,
		snapshot.Sensitive,
	).Scan(&snapshot.CreatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	snapshot.WorkspaceID = r.workspaceID
	return snapshot, nil
}

// Update replaces the snapshot row by id, inserting when absent
func (r *SnapshotRepository) Update(ctx context.Context, snapshot *domain.VariableValueSnapshot) (*domain.VariableValueSnapshot, error) {
	query := `
		INSERT INTO variable_value_snapshots (id, workspace_id, key, value, sensitive, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET key = EXCLUDED.key,
		    value = EXCLUDED.value,
		    sensitive = EXCLUDED.sensitive
		WHERE variable_value_snapshots.workspace_id = EXCLUDED.workspace_id
	`

	if _, err := r.db.Pool.Exec(ctx, query,
		snapshot.ID,
		r.workspaceID,
		snapshot.Key,
		snapshot.Value,
		snapshot.Sensitive,
	); err != nil {
		return nil, fmt.Errorf("failed to update snapshot: %w", err)
	}
	snapshot.WorkspaceID = r.workspaceID
	return snapshot, nil
}

// Delete removes the snapshot and returns the pre-delete snapshot of the
// row
func (r *SnapshotRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.VariableValueSnapshot, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	query := `DELETE FROM variable_value_snapshots WHERE id = $1 AND workspace_id = $2`
	if _, err := r.db.Pool.Exec(ctx, query, id, r.workspaceID); err != nil {
		return nil, fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return existing, nil
}

// Exists reports whether a snapshot with the given id exists in the
// workspace
func (r *SnapshotRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM variable_value_snapshots WHERE id = $1 AND workspace_id = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return exists, nil
}
