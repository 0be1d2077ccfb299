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

var _ repository.Repository[*domain.ResourceRelationshipRule] = (*RelationshipRuleRepository)(nil)

const relationshipRuleQuery = `
	SELECT rr.id, rr.workspace_id, rr.name, rr.reference, rr.relationship_type,
	       rr.source_kind, rr.target_kind, rr.created_at,
	       mm.id, mm.source_key, mm.target_key
	FROM resource_relationship_rules rr
	LEFT JOIN resource_relationship_rule_metadata_matches mm ON mm.rule_id = rr.id
`

// RelationshipRuleRepository handles resource relationship rule data
// operations in PostgreSQL. Metadata match rows fold into their parent
// rule on read.
type RelationshipRuleRepository struct {
	db          *database.PostgresDB
	workspaceID uuid.UUID
}

// NewRelationshipRuleRepository creates a new relationship rule repository
// scoped to a workspace
func NewRelationshipRuleRepository(db *database.PostgresDB, workspaceID uuid.UUID) *RelationshipRuleRepository {
	return &RelationshipRuleRepository{db: db, workspaceID: workspaceID}
}

// foldRelationshipRuleRows groups joined match rows under their parent
// rule, preserving first-seen rule order
func foldRelationshipRuleRows(rows pgx.Rows) ([]*domain.ResourceRelationshipRule, error) {
	byID := make(map[uuid.UUID]*domain.ResourceRelationshipRule)
	var ordered []*domain.ResourceRelationshipRule

	for rows.Next() {
		var (
			rule      domain.ResourceRelationshipRule
			matchID   *uuid.UUID
			sourceKey *string
			targetKey *string
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.WorkspaceID,
			&rule.Name,
			&rule.Reference,
			&rule.RelationshipType,
			&rule.SourceKind,
			&rule.TargetKind,
			&rule.CreatedAt,
			&matchID,
			&sourceKey,
			&targetKey,
		); err != nil {
			return nil, fmt.Errorf("failed to scan relationship rule: %w", err)
		}

		existing, ok := byID[rule.ID]
		if !ok {
			rule.MetadataMatches = []domain.MetadataMatch{}
			existing = &rule
			byID[rule.ID] = existing
			ordered = append(ordered, existing)
		}
		if matchID != nil {
			existing.MetadataMatches = append(existing.MetadataMatches, domain.MetadataMatch{
				ID:        *matchID,
				RuleID:    existing.ID,
				SourceKey: *sourceKey,
				TargetKey: *targetKey,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relationship rules: %w", err)
	}
	return ordered, nil
}

// Get retrieves a relationship rule by id with its metadata matches, or
// nil when absent
func (r *RelationshipRuleRepository) Get(ctx context.Context, id uuid.UUID) (*domain.ResourceRelationshipRule, error) {
	query := relationshipRuleQuery + ` WHERE rr.id = $1 AND rr.workspace_id = $2`

	rows, err := r.db.Pool.Query(ctx, query, id, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship rule: %w", err)
	}
	defer rows.Close()

	rules, err := foldRelationshipRuleRows(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules[0], nil
}

// GetAll retrieves every relationship rule in the workspace with metadata
// matches folded in
func (r *RelationshipRuleRepository) GetAll(ctx context.Context) ([]*domain.ResourceRelationshipRule, error) {
	query := relationshipRuleQuery + ` WHERE rr.workspace_id = $1 ORDER BY rr.id, mm.id`

	rows, err := r.db.Pool.Query(ctx, query, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationship rules: %w", err)
	}
	defer rows.Close()

	return foldRelationshipRuleRows(rows)
}

// Create inserts the rule and its metadata matches in one transaction; a
// duplicate rule id is ignored, never overwritten
func (r *RelationshipRuleRepository) Create(ctx context.Context, rule *domain.ResourceRelationshipRule) (*domain.ResourceRelationshipRule, error) {
	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO resource_relationship_rules
				(id, workspace_id, name, reference, relationship_type, source_kind, target_kind, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id) DO NOTHING
			RETURNING created_at
		`
		err := tx.QueryRow(ctx, query,
			rule.ID,
			r.workspaceID,
			rule.Name,
			rule.Reference,
			rule.RelationshipType,
			rule.SourceKind,
			rule.TargetKind,
		).Scan(&rule.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create relationship rule: %w", err)
		}
		return insertMetadataMatches(ctx, tx, rule)
	})
	if err != nil {
		return nil, err
	}
	rule.WorkspaceID = r.workspaceID
	return rule, nil
}

// Update replaces the rule row and its metadata matches by id
func (r *RelationshipRuleRepository) Update(ctx context.Context, rule *domain.ResourceRelationshipRule) (*domain.ResourceRelationshipRule, error) {
	err := database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO resource_relationship_rules
				(id, workspace_id, name, reference, relationship_type, source_kind, target_kind, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    reference = EXCLUDED.reference,
			    relationship_type = EXCLUDED.relationship_type,
			    source_kind = EXCLUDED.source_kind,
			    target_kind = EXCLUDED.target_kind
			WHERE resource_relationship_rules.workspace_id = EXCLUDED.workspace_id
		`
		ct, err := tx.Exec(ctx, query,
			rule.ID,
			r.workspaceID,
			rule.Name,
			rule.Reference,
			rule.RelationshipType,
			rule.SourceKind,
			rule.TargetKind,
		)
		if err != nil {
			return fmt.Errorf("failed to update relationship rule: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// The id belongs to another workspace; the match rows must not
			// be touched either.
			return fmt.Errorf("relationship rule %s not found in workspace", rule.ID)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM resource_relationship_rule_metadata_matches WHERE rule_id = $1`,
			rule.ID,
		); err != nil {
			return fmt.Errorf("failed to clear metadata matches: %w", err)
		}
		return insertMetadataMatches(ctx, tx, rule)
	})
	if err != nil {
		return nil, err
	}
	rule.WorkspaceID = r.workspaceID
	return rule, nil
}

// Delete removes the rule and its metadata matches, returning the
// pre-delete snapshot
func (r *RelationshipRuleRepository) Delete(ctx context.Context, id uuid.UUID) (*domain.ResourceRelationshipRule, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	err = database.Transaction(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM resource_relationship_rule_metadata_matches WHERE rule_id = $1`,
			id,
		); err != nil {
			return fmt.Errorf("failed to delete metadata matches: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM resource_relationship_rules WHERE id = $1 AND workspace_id = $2`,
			id, r.workspaceID,
		); err != nil {
			return fmt.Errorf("failed to delete relationship rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Exists reports whether a relationship rule with the given id exists in
// the workspace
func (r *RelationshipRuleRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM resource_relationship_rules WHERE id = $1 AND workspace_id = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, id, r.workspaceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check relationship rule existence: %w", err)
	}
	return exists, nil
}

func insertMetadataMatches(ctx context.Context, tx pgx.Tx, rule *domain.ResourceRelationshipRule) error {
	for _, match := range rule.MetadataMatches {
		id := match.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		query := `
			INSERT INTO resource_relationship_rule_metadata_matches (id, rule_id, source_key, target_key)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, query, id, rule.ID, match.SourceKey, match.TargetKey); err != nil {
			return fmt.Errorf("failed to insert metadata match: %w", err)
		}
	}
	return nil
}
