package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deployment is a grouping entity inside a system describing one
// deployable application or service
type Deployment struct {
	ID          uuid.UUID `json:"id"`
	SystemID    uuid.UUID `json:"systemId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	JobAgentID  *uuid.UUID `json:"jobAgentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GetID returns the deployment id
func (d *Deployment) GetID() uuid.UUID { return d.ID }
