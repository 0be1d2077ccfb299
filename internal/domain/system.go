package domain

import (
	"time"

	"github.com/google/uuid"
)

// System groups environments and deployments under a workspace
type System struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GetID returns the system id
func (s *System) GetID() uuid.UUID { return s.ID }
