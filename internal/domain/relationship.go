package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResourceRelationshipRule describes how resources of one kind relate to
// resources of another kind inside a workspace
type ResourceRelationshipRule struct {
	ID               uuid.UUID `json:"id"`
	WorkspaceID      uuid.UUID `json:"workspaceId"`
	Name             string    `json:"name"`
	Reference        string    `json:"reference"`
	RelationshipType string    `json:"relationshipType"`
	SourceKind       string    `json:"sourceKind"`
	TargetKind       string    `json:"targetKind"`
	CreatedAt        time.Time `json:"createdAt"`

	// Related data (populated by the repository join, not stored)
	MetadataMatches []MetadataMatch `json:"metadataMatches,omitempty"`
}

// GetID returns the rule id
func (r *ResourceRelationshipRule) GetID() uuid.UUID { return r.ID }

// MetadataMatch requires a source metadata key to equal a target metadata
// key for the parent rule to apply
type MetadataMatch struct {
	ID        uuid.UUID `json:"id"`
	RuleID    uuid.UUID `json:"ruleId"`
	SourceKey string    `json:"sourceKey"`
	TargetKey string    `json:"targetKey"`
}

// GetID returns the match id
func (m *MetadataMatch) GetID() uuid.UUID { return m.ID }
