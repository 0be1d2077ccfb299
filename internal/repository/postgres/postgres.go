// Package postgres implements the repository contract against the
// relational store. Every query is predicated on workspace ownership via
// the shortest join path to a workspace_id column, so a row in another
// workspace is indistinguishable from a missing row.
package postgres

import (
	"github.com/google/uuid"

	"github.com/ctrlplanedev/workspace-engine/internal/pkg/database"
)

// Repositories bundles every store-backed repository for one workspace
type Repositories struct {
	Resources                *ResourceRepository
	Systems                  *SystemRepository
	Environments             *EnvironmentRepository
	Deployments              *DeploymentRepository
	ReleaseTargets           *ReleaseTargetRepository
	Variables                *VariableRepository
	VariableValues           *VariableValueRepository
	VersionReleases          *VersionReleaseRepository
	VariableSetReleases      *VariableSetReleaseRepository
	VariableSetReleaseValues *VariableSetReleaseValueRepository
	Snapshots                *SnapshotRepository
	Releases                 *ReleaseRepository
	RelationshipRules        *RelationshipRuleRepository
}

// NewRepositories constructs all store-backed repositories scoped to the
// given workspace
func NewRepositories(db *database.PostgresDB, workspaceID uuid.UUID) *Repositories {
	return &Repositories{
		Resources:                NewResourceRepository(db, workspaceID),
		Systems:                  NewSystemRepository(db, workspaceID),
		Environments:             NewEnvironmentRepository(db, workspaceID),
		Deployments:              NewDeploymentRepository(db, workspaceID),
		ReleaseTargets:           NewReleaseTargetRepository(db, workspaceID),
		Variables:                NewVariableRepository(db, workspaceID),
		VariableValues:           NewVariableValueRepository(db, workspaceID),
		VersionReleases:          NewVersionReleaseRepository(db, workspaceID),
		VariableSetReleases:      NewVariableSetReleaseRepository(db, workspaceID),
		VariableSetReleaseValues: NewVariableSetReleaseValueRepository(db, workspaceID),
		Snapshots:                NewSnapshotRepository(db, workspaceID),
		Releases:                 NewReleaseRepository(db, workspaceID),
		RelationshipRules:        NewRelationshipRuleRepository(db, workspaceID),
	}
}
