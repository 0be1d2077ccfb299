package domain

import (
	"time"

	"github.com/google/uuid"
)

// VersionRelease pins a release target to a deployment version
type VersionRelease struct {
	ID              uuid.UUID `json:"id"`
	ReleaseTargetID uuid.UUID `json:"releaseTargetId"`
	VersionID       uuid.UUID `json:"versionId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// GetID returns the version release id
func (v *VersionRelease) GetID() uuid.UUID { return v.ID }

// VariableSetRelease pins a release target to a set of resolved variable
// values
type VariableSetRelease struct {
	ID              uuid.UUID `json:"id"`
	ReleaseTargetID uuid.UUID `json:"releaseTargetId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// GetID returns the variable set release id
func (v *VariableSetRelease) GetID() uuid.UUID { return v.ID }

// VariableSetReleaseValue links a variable set release to one snapshot
type VariableSetReleaseValue struct {
	ID                      uuid.UUID `json:"id"`
	VariableSetReleaseID    uuid.UUID `json:"variableSetReleaseId"`
	VariableValueSnapshotID uuid.UUID `json:"variableValueSnapshotId"`
}

// GetID returns the link row id
func (v *VariableSetReleaseValue) GetID() uuid.UUID { return v.ID }

// VariableValueSnapshot captures a resolved variable value at release time
type VariableValueSnapshot struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Sensitive   bool      `json:"sensitive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GetID returns the snapshot id
func (s *VariableValueSnapshot) GetID() uuid.UUID { return s.ID }

// Release pairs a version release with a variable set release for one
// release target
type Release struct {
	ID                   uuid.UUID `json:"id"`
	VersionReleaseID     uuid.UUID `json:"versionReleaseId"`
	VariableSetReleaseID uuid.UUID `json:"variableSetReleaseId"`
	CreatedAt            time.Time `json:"createdAt"`
}

// GetID returns the release id
func (r *Release) GetID() uuid.UUID { return r.ID }
