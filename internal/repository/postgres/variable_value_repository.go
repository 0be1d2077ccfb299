package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/database"
	apperrors "github.com/ctrlplanedev/workspace-engine/internal/pkg/errors"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/logger"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/metrics"
	"github.com/ctrlplanedev/workspace-engine/internal/repository"
)

var _ repository.Repository[*domain.DeploymentVariableValue] = (*VariableValueRepository)(nil)

// variableValueQuery joins the base row with both specializations. Exactly
// one side of the LEFT JOINs is expected to match per row.
const variableValueQuery = `
	SELECT vv.id, vv.variable_id, vv.is_default, vv.priority, vv.created_at,
	       dv.value, dv.sensitive,
	       rv.reference, rv.path
	FROM deployment_variable_values vv
	JOIN deployment_variables v ON v.id = vv.variable_id
	JOIN deployments d ON d.id = v.deployment_id
	JOIN systems s ON s.id = d.system_id
	LEFT JOIN deployment_variable_value_directs dv ON dv.variable_value_id = vv.id
	LEFT JOIN deployment_variable_value_references rv ON rv.variable_value_id = vv.id
`

// VariableValueRepository handles polymorphic deployment variable value
// data operations in PostgreSQL. Each value is a base row plus exactly one
// specialization row; rows carrying neither are treated as corrupt and
// never surfaced.
type VariableValueRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewVariableValueRepository creates a new variable value repository scoped
// to a workspace
func NewVariableValueRepository(db *database.PostgresDB, workspaceID uuid.UUID) *VariableValueRepository {
	return &VariableValueRepository{db: db, workspaceID: workspaceID}
}

// scanVariableValue resolves one joined row into a value. The direct side
// wins when both specializations somehow match; a row matching neither
// returns nil after recording the integrity violation.
func (r *VariableValueRepository) scanVariableValue(rows pgx.Rows) (*domain.DeploymentVariableValue, error) {
	var (
		value     domain.DeploymentVariableValue
		direct    *string
		sensitive *bool
		reference *string
		path      []string
	)
	if err := rows.Scan(
		&value.ID,
		&value.VariableID,
		&value.IsDefault,
		&value.Priority,
		&value.CreatedAt,
		&direct,
		&sensitive,
		&reference,
		&path,
	); err != nil {
		return nil, fmt.Errorf("failed to scan variable value: %w", err)
	}

	switch {
	case direct != nil:
		value.Direct = &domain.DirectValue{Value: *direct, Sensitive: sensitive != nil && *sensitive}
	case reference != nil:
		value.Reference = &domain.ReferenceValue{Reference: *reference, Path: path}
	default:
		metrics.RecordIntegrityViolation("variable_value")
		integrityErr := apperrors.DataIntegrity("variable value has no specialization row").
			WithDetail("value_id", value.ID.String()).
			WithDetail("variable_id", value.VariableID.String())
		logger.Error("excluding corrupt variable value",
			zap.String("value_id", value.ID.String()),
			zap.String("variable_id", value.VariableID.String()),
			zap.Error(integrityErr),
		)
		return nil, nil
	}
	return &value, nil
}

// Get retrieves a variable value by id, or nil when absent. A base row
// with no specialization is reported as nil after logging the corruption.
func (r *VariableValueRepository) Get(ctx context.Context, id uuid.UUID) (*domain.DeploymentVariableValue, error) {
	query := variableValueQuery + ` WHERE vv.id = $1 AND s.workspace_id = $2`

	rows, err := r.db.Pool.Query(ctx, query, id, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get variable value: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get variable value: %w", err)
		}
		return nil, nil
	}
	return r.scanVariableValue(rows)
}

// GetAll retrieves every variable value in the workspace, ordered by
// priority descending within each variable. Corrupt rows are filtered out.
func (r *VariableValueRepository) GetAll(ctx context.Context) ([]*domain.DeploymentVariableValue, error) {
	query := variableValueQuery + `
	WHERE s.workspace_id = $1
	ORDER BY vv.variable_id, vv.priority DESC, vv.id`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variable values: %w", err)
	}
	defer rows.Close()

	var values []*domain.DeploymentVariableValue
	for rows.Next() {
		value, err := r.scanVariableValue(rows)
		if err != nil {
			return nil, err
		}
		if value != nil {
			values = append(values, value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list variable values: %w", err)
	}
	return values, nil
}

// Create inserts the base row and its single specialization in one
// transaction. When IsDefault is set the owning variable's default pointer
// moves to the new value. A duplicate id leaves the stored value untouched.
func (r *VariableValueRepository) Create(ctx context.Context, value *domain.DeploymentVariableValue) (*domain.DeploymentVariableValue, error) {
	if value.Variant() == "" {
		return nil, apperrors.Validation("variable value must carry a direct or reference specialization")
	}
	if err := r.checkVariableScope(ctx, value.VariableID); err != nil {
		return nil, err
	}

	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO deployment_variable_values (id, variable_id, is_default, priority, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO NOTHING
			RETURNING created_at
		`
		err := tx.QueryRow(ctx, query,
			value.ID,
			value.VariableID,
			value.IsDefault,
			value.Priority,
		).Scan(&value.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			// Duplicate id, the stored value wins and the variant rows
			// already exist.
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create variable value: %w", err)
		}

		if err := insertVariant(ctx, tx, value); err != nil {
			return err
		}

		if value.IsDefault {
			update := `UPDATE deployment_variables SET default_value_id = $1, updated_at = NOW() WHERE id = $2`
			if _, err := tx.Exec(ctx, update, value.ID, value.VariableID); err != nil {
				return fmt.Errorf("failed to set default value pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Update replaces the base row and specialization by id, inserting when
// absent. A value keeps its original variant; an update declaring the
// other one is rejected.
func (r *VariableValueRepository) Update(ctx context.Context, value *domain.DeploymentVariableValue) (*domain.DeploymentVariableValue, error) {
	if value.Variant() == "" {
		return nil, apperrors.Validation("variable value must carry a direct or reference specialization")
	}
	if err := r.checkVariableScope(ctx, value.VariableID); err != nil {
		return nil, err
	}

	var hasDirect, hasReference bool
	variantCheck := `
		SELECT EXISTS(SELECT 1 FROM deployment_variable_value_directs WHERE variable_value_id = $1),
		       EXISTS(SELECT 1 FROM deployment_variable_value_references WHERE variable_value_id = $1)
	`
	if err := r.db.Pool.QueryRow(ctx, variantCheck, value.ID).Scan(&hasDirect, &hasReference); err != nil {
		return nil, fmt.Errorf("failed to check variable value variant: %w", err)
	}
	if (hasDirect && value.Reference != nil) || (hasReference && value.Direct != nil) {
		return nil, apperrors.Validation("variable value variant cannot change on update")
	}

	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO deployment_variable_values (id, variable_id, is_default, priority, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (id) DO UPDATE
			SET variable_id = EXCLUDED.variable_id,
			    is_default = EXCLUDED.is_default,
			    priority = EXCLUDED.priority
			WHERE deployment_variable_values.variable_id IN (
				SELECT v.id FROM deployment_variables v
				JOIN deployments d ON d.id = v.deployment_id
				JOIN systems s ON s.id = d.system_id
				WHERE s.workspace_id = $5
			)
		`
		ct, err := tx.Exec(ctx, query,
			value.ID,
			value.VariableID,
			value.IsDefault,
			value.Priority,
			r.workspaceID,
		)
		if err != nil {
			return fmt.Errorf("failed to update variable value: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("variable value %s not found in workspace", value.ID)
		}

		if err := deleteVariants(ctx, tx, value.ID); err != nil {
			return err
		}
		if err := insertVariant(ctx, tx, value); err != nil {
			return err
		}

		if value.IsDefault {
			update := `UPDATE deployment_variables SET default_value_id = $1, updated_at = NOW() WHERE id = $2`
			if _, err := tx.Exec(ctx, update, value.ID, value.VariableID); err != nil {
				return fmt.Errorf("failed to set default value pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes the specialization rows and the base row, returning the
// pre-delete snapshot. A corrupt base row with no specialization yields a
// nil snapshot but is still deleted. The owning variable's default pointer
// is cleared when it referenced the deleted value. Both specialization
// tables are attempted so a corrupt double-variant row is fully cleaned up.
func (r *VariableValueRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.DeploymentVariableValue, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Get returns nil for an unknown id but also for a corrupt base row
		// with no specialization. The corrupt row must still be removable,
		// so only a genuinely absent id short-circuits.
		present, err := r.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
	}

	err = database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		clear := `UPDATE deployment_variables SET default_value_id = NULL, updated_at = NOW() WHERE default_value_id = $1`
		if _, err := tx.Exec(ctx, clear, id); err != nil {
			return fmt.Errorf("failed to clear default value pointer: %w", err)
		}
		if err := deleteVariants(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM deployment_variable_values WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete variable value: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Exists reports whether a variable value with the given id exists in the
// workspace
func (r *VariableValueRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM deployment_variable_values vv
			JOIN deployment_variables v ON v.id = vv.variable_id
			JOIN deployments d ON d.id = v.deployment_id
			JOIN systems s ON s.id = d.system_id
			WHERE vv.id = $1 AND s.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check variable value existence: %w", err)
	}
	return exists, nil
}

func (r *VariableValueRepository) checkVariableScope(ctx context.Context, variableID uuid.UUID) error {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM deployment_variables v
			JOIN deployments d ON d.id = v.deployment_id
			JOIN systems s ON s.id = d.system_id
			WHERE v.id = $1 AND s.workspace_id = $2
		)
	`
	if err := r.db.Pool.QueryRow(ctx, query, variableID, r.workspaceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check variable scope: %w", err)
	}
	if !exists {
		return fmt.Errorf("variable %s not found in workspace", variableID)
	}
	return nil
}

func insertVariant(ctx context.Context, tx pgx.Tx, value *domain.DeploymentVariableValue) error {
	switch {
	case value.Direct != nil:
		query := `
			INSERT INTO deployment_variable_value_directs (variable_value_id, value, sensitive)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.Exec(ctx, query, value.ID, value.Direct.Value, value.Direct.Sensitive); err != nil {
			return fmt.Errorf("failed to insert direct value: %w", err)
		}
	case value.Reference != nil:
		query := `
			INSERT INTO deployment_variable_value_references (variable_value_id, reference, path)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.Exec(ctx, query, value.ID, value.Reference.Reference, value.Reference.Path); err != nil {
			return fmt.Errorf("failed to insert reference value: %w", err)
		}
	}
	return nil
}

func deleteVariants(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM deployment_variable_value_directs WHERE variable_value_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete direct value: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM deployment_variable_value_references WHERE variable_value_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reference value: %w", err)
	}
	return nil
}
