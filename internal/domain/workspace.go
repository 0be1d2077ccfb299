package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary. Every other entity is reachable from
// a workspace through a join chain, and no read or write crosses it.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID returns the workspace id
func (w *Workspace) GetID() uuid.UUID { return w.ID }
