package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReleaseTarget is the unit the engine schedules work against: one
// resource in one environment for one deployment. The tuple
// (ResourceID, EnvironmentID, DeploymentID) is unique in the store.
type ReleaseTarget struct {
	ID               uuid.UUID  `json:"id"`
	ResourceID       uuid.UUID  `json:"resourceId"`
	EnvironmentID    uuid.UUID  `json:"environmentId"`
	DeploymentID     uuid.UUID  `json:"deploymentId"`
	DesiredReleaseID *uuid.UUID `json:"desiredReleaseId,omitempty"`
	DesiredVersionID *uuid.UUID `json:"desiredVersionId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`

	// Related data (populated by the repository join, not stored)
	Resource    *Resource    `json:"resource,omitempty"`
	Environment *Environment `json:"environment,omitempty"`
	Deployment  *Deployment  `json:"deployment,omitempty"`
}

// GetID returns the release target id
func (rt *ReleaseTarget) GetID() uuid.UUID { return rt.ID }

// Key returns the tuple identity of the release target
func (rt *ReleaseTarget) Key() ReleaseTargetKey {
	return ReleaseTargetKey{
		ResourceID:    rt.ResourceID,
		EnvironmentID: rt.EnvironmentID,
		DeploymentID:  rt.DeploymentID,
	}
}

// ReleaseTargetKey is the tuple identity of a release target
type ReleaseTargetKey struct {
	ResourceID    uuid.UUID
	EnvironmentID uuid.UUID
	DeploymentID  uuid.UUID
}
