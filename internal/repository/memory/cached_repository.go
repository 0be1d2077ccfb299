// Package memory provides in-memory cache repositories layered over the
// store-backed ones. Each cache hydrates a full workspace snapshot once at
// construction, serves all reads from the snapshot, and propagates every
// write to the store either awaited or detached.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/ctrlplanedev/workspace-engine/internal/pkg/logger"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/metrics"
	"github.com/ctrlplanedev/workspace-engine/internal/repository"
)

// WritePolicy controls how cache mutations reach the backing store
type WritePolicy int

const (
	// WriteAwait blocks the mutation until the store write completes and
	// surfaces its error to the caller
	WriteAwait WritePolicy = iota
	// WriteDetach applies the mutation to the cache immediately and runs
	// the store write on its own goroutine; failures are logged and
	// counted, never returned
	WriteDetach
)

// FailureHandler is invoked when a detached store write fails
type FailureHandler func(entityID uuid.UUID, err error)

// Option configures a CachedRepository
type Option[T repository.Identifiable] func(*CachedRepository[T])

// WithFailureHandler replaces the default detached failure handler
func WithFailureHandler[T repository.Identifiable](fn FailureHandler) Option[T] {
	return func(c *CachedRepository[T]) {
		c.onFailure = fn
	}
}

// CachedRepository decorates a store-backed repository with an in-memory
// snapshot. The map is the source of truth after hydration; the store is
// kept in sync per the write policy.
type CachedRepository[T repository.Identifiable] struct {
	entity    string
	store     repository.Repository[T]
	policy    WritePolicy
	items     *xsync.MapOf[uuid.UUID, T]
	onFailure FailureHandler

	detached sync.WaitGroup
}

var _ repository.Repository[repository.Identifiable] = (*CachedRepository[repository.Identifiable])(nil)

// NewCachedRepository hydrates the cache from the store and returns the
// decorated repository. A hydration failure is returned so the workspace
// never runs on a partial snapshot.
func NewCachedRepository[T repository.Identifiable](
	ctx context.Context,
	entity string,
	store repository.Repository[T],
	policy WritePolicy,
	opts ...Option[T],
) (*CachedRepository[T], error) {
	c := &CachedRepository[T]{
		entity: entity,
		store:  store,
		policy: policy,
		items:  xsync.NewMapOf[uuid.UUID, T](),
	}
	c.onFailure = func(entityID uuid.UUID, err error) {
		metrics.RecordStoreWriteFailure(entity, "detached")
		logger.Error("detached store write failed",
			zap.String("entity", entity),
			zap.String("entity_id", entityID.String()),
			zap.Error(err),
		)
	}
	for _, opt := range opts {
		opt(c)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range all {
		c.items.Store(item.GetID(), item)
	}
	metrics.RecordHydration(entity, len(all))
	return c, nil
}

// Get returns the cached entity, or the zero value when absent. The store
// is never consulted on reads.
func (c *CachedRepository[T]) Get(_ context.Context, id uuid.UUID) (T, error) {
	metrics.RecordCacheOp(c.entity, "get")
	item, ok := c.items.Load(id)
	if !ok {
		var zero T
		return zero, nil
	}
	return item, nil
}

// GetAll returns every cached entity in no particular order
func (c *CachedRepository[T]) GetAll(_ context.Context) ([]T, error) {
	metrics.RecordCacheOp(c.entity, "get_all")
	items := make([]T, 0, c.items.Size())
	c.items.Range(func(_ uuid.UUID, item T) bool {
		items = append(items, item)
		return true
	})
	return items, nil
}

// Create stores the entity in the cache, then propagates the insert. The
// cache keeps the given payload even when the store already held a row
// with the same id; the store insert ignores the conflict, so the two can
// diverge on duplicate ids.
func (c *CachedRepository[T]) Create(ctx context.Context, entity T) (T, error) {
	metrics.RecordCacheOp(c.entity, "create")
	c.items.Store(entity.GetID(), entity)
	if err := c.propagate(ctx, entity.GetID(), func(ctx context.Context) error {
		_, err := c.store.Create(ctx, entity)
		return err
	}); err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

// Update stores the entity in the cache, then propagates the upsert
func (c *CachedRepository[T]) Update(ctx context.Context, entity T) (T, error) {
	metrics.RecordCacheOp(c.entity, "update")
	c.items.Store(entity.GetID(), entity)
	if err := c.propagate(ctx, entity.GetID(), func(ctx context.Context) error {
		_, err := c.store.Update(ctx, entity)
		return err
	}); err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

// Delete removes the entity from the cache first, then propagates the
// delete. The returned snapshot is the cached value from before removal;
// the zero value means nothing was cached.
func (c *CachedRepository[T]) Delete(ctx context.Context, id uuid.UUID) (T, error) {
	metrics.RecordCacheOp(c.entity, "delete")
	snapshot, ok := c.items.LoadAndDelete(id)
	if !ok {
		var zero T
		snapshot = zero
	}
	if err := c.propagate(ctx, id, func(ctx context.Context) error {
		_, err := c.store.Delete(ctx, id)
		return err
	}); err != nil {
		var zero T
		return zero, err
	}
	return snapshot, nil
}

// Exists reports whether the entity is cached
func (c *CachedRepository[T]) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := c.items.Load(id)
	return ok, nil
}

// Wait blocks until all detached store writes issued so far have finished
func (c *CachedRepository[T]) Wait() {
	c.detached.Wait()
}

// propagate runs the store write per the configured policy. Awaited writes
// surface their error and record the failure; the cache mutation stands
// either way, reconciliation is the caller's call.
func (c *CachedRepository[T]) propagate(ctx context.Context, id uuid.UUID, write func(context.Context) error) error {
	if c.policy == WriteAwait {
		if err := write(ctx); err != nil {
			metrics.RecordStoreWriteFailure(c.entity, "awaited")
			return err
		}
		return nil
	}

	c.detached.Add(1)
	go func() {
		defer c.detached.Done()
		// The caller's context may be cancelled as soon as the cache
		// mutation returns, so the detached write runs on its own.
		if err := write(context.WithoutCancel(ctx)); err != nil {
			c.onFailure(id, err)
		}
	}()
	return nil
}
