package domain

import (
	"time"

	"github.com/google/uuid"
)

// Resource represents a deployable target: a cluster, VM, cloud account,
// or anything else work can be scheduled against. Metadata rows are stored
// separately but always presented as a map; keys are unique per resource.
type Resource struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspaceId"`
	Name        string     `json:"name"`
	Kind        string     `json:"kind"`
	Identifier  string     `json:"identifier"`
	Version     string     `json:"version"`
	Config      string     `json:"config,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Metadata is never nil after a repository read; a resource with no
	// metadata rows carries an empty map.
	Metadata map[string]string `json:"metadata"`
}

// GetID returns the resource id
func (r *Resource) GetID() uuid.UUID { return r.ID }

// IsDeleted reports whether the resource is soft-deleted
func (r *Resource) IsDeleted() bool { return r.DeletedAt != nil }

// ResourceInput represents input for creating a resource
type ResourceInput struct {
	Name       string            `json:"name" validate:"required,min=1,max=255"`
	Kind       string            `json:"kind" validate:"required,min=1,max=100"`
	Identifier string            `json:"identifier" validate:"required,min=1,max=255"`
	Version    string            `json:"version" validate:"required"`
	Config     string            `json:"config,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
