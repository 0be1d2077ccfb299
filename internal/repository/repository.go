package repository

import (
	"context"

	"github.com/google/uuid"
)

// Identifiable is implemented by every domain entity the contract covers
type Identifiable interface {
	GetID() uuid.UUID
}

// Repository is the uniform CRUD contract every concrete repository
// implements. T is instantiated with a pointer entity type, e.g.
// Repository[*domain.Resource], so absence is representable as nil.
type Repository[T Identifiable] interface {
	// Get returns the entity with the given id, or nil when it does not
	// exist in the repository's workspace.
	Get(ctx context.Context, id uuid.UUID) (T, error)

	// GetAll returns the full workspace-scoped collection. Order is
	// iteration order, not guaranteed sorted.
	GetAll(ctx context.Context) ([]T, error)

	// Create inserts the entity and returns the stored representation.
	Create(ctx context.Context, entity T) (T, error)

	// Update replaces the row identified by the entity's id. The caller
	// supplies the complete entity.
	Update(ctx context.Context, entity T) (T, error)

	// Delete removes the entity and returns the pre-delete snapshot, or
	// nil when the id is unknown.
	Delete(ctx context.Context, id uuid.UUID) (T, error)

	// Exists reports whether an entity with the given id exists.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
