// Package store assembles the workspace entity cache: one hydrated
// in-memory repository per entity kind, layered over the store-backed
// repositories. Configuration-shaped entities propagate writes awaited;
// release artifacts propagate detached since they are immutable records
// whose loss is tolerable.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/database"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/logger"
	"github.com/ctrlplanedev/workspace-engine/internal/repository"
	"github.com/ctrlplanedev/workspace-engine/internal/repository/memory"
	"github.com/ctrlplanedev/workspace-engine/internal/repository/postgres"
)

// Store holds every cached repository for one workspace. All reads hit the
// in-memory snapshot; writes reach PostgreSQL per each entity's policy.
type Store struct {
	WorkspaceID uuid.UUID

	Resources                repository.Repository[*domain.Resource]
	Systems                  repository.Repository[*domain.System]
	Environments             repository.Repository[*domain.Environment]
	Deployments              repository.Repository[*domain.Deployment]
	ReleaseTargets           repository.Repository[*domain.ReleaseTarget]
	Variables                repository.Repository[*domain.DeploymentVariable]
	VariableValues           repository.Repository[*domain.DeploymentVariableValue]
	RelationshipRules        repository.Repository[*domain.ResourceRelationshipRule]
	VersionReleases          repository.Repository[*domain.VersionRelease]
	VariableSetReleases      repository.Repository[*domain.VariableSetRelease]
	VariableSetReleaseValues repository.Repository[*domain.VariableSetReleaseValue]
	Snapshots                repository.Repository[*domain.VariableValueSnapshot]
	Releases                 repository.Repository[*domain.Release]

	caches []waiter
}

type waiter interface {
	Wait()
}

// New constructs the workspace store and hydrates every cache from
// PostgreSQL. Any hydration failure aborts construction.
func New(ctx context.Context, db *database.PostgresDB, workspaceID uuid.UUID) (*Store, error) {
	start := time.Now()
	repos := postgres.NewRepositories(db, workspaceID)

	s := &Store{WorkspaceID: workspaceID}

	var err error
	if s.Resources, err = hydrate(ctx, s, "resource", repos.Resources, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.Systems, err = hydrate(ctx, s, "system", repos.Systems, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.Environments, err = hydrate(ctx, s, "environment", repos.Environments, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.Deployments, err = hydrate(ctx, s, "deployment", repos.Deployments, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.ReleaseTargets, err = hydrate(ctx, s, "release_target", repos.ReleaseTargets, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.Variables, err = hydrate(ctx, s, "variable", repos.Variables, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.VariableValues, err = hydrate(ctx, s, "variable_value", repos.VariableValues, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.RelationshipRules, err = hydrate(ctx, s, "relationship_rule", repos.RelationshipRules, memory.WriteAwait); err != nil {
		return nil, err
	}
	if s.VersionReleases, err = hydrate(ctx, s, "version_release", repos.VersionReleases, memory.WriteDetach); err != nil {
		return nil, err
	}
	if s.VariableSetReleases, err = hydrate(ctx, s, "variable_set_release", repos.VariableSetReleases, memory.WriteDetach); err != nil {
		return nil, err
	}
	if s.VariableSetReleaseValues, err = hydrate(ctx, s, "variable_set_release_value", repos.VariableSetReleaseValues, memory.WriteDetach); err != nil {
		return nil, err
	}
	if s.Snapshots, err = hydrate(ctx, s, "variable_value_snapshot", repos.Snapshots, memory.WriteDetach); err != nil {
		return nil, err
	}
	if s.Releases, err = hydrate(ctx, s, "release", repos.Releases, memory.WriteDetach); err != nil {
		return nil, err
	}

	logger.Info("workspace store hydrated",
		zap.String("workspace_id", workspaceID.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return s, nil
}

// Flush blocks until every detached store write issued so far has finished
func (s *Store) Flush() {
	for _, c := range s.caches {
		c.Wait()
	}
}

func hydrate[T repository.Identifiable](
	ctx context.Context,
	s *Store,
	entity string,
	store repository.Repository[T],
	policy memory.WritePolicy,
) (*memory.CachedRepository[T], error) {
	cache, err := memory.NewCachedRepository(ctx, entity, store, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate %s cache: %w", entity, err)
	}
	s.caches = append(s.caches, cache)
	return cache, nil
}
