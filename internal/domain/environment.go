package domain

import (
	"time"

	"github.com/google/uuid"
)

// Environment is a grouping entity inside a system (e.g. staging, production)
type Environment struct {
	ID             uuid.UUID `json:"id"`
	SystemID       uuid.UUID `json:"systemId"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ResourceFilter string    `json:"resourceFilter,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// GetID returns the environment id
func (e *Environment) GetID() uuid.UUID { return e.ID }
