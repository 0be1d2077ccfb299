package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeploymentVariable is a named variable scoped to a deployment.
// DefaultValueID, when set, points at one of the variable's own values.
type DeploymentVariable struct {
	ID             uuid.UUID  `json:"id"`
	DeploymentID   uuid.UUID  `json:"deploymentId"`
	Key            string     `json:"key"`
	Description    string     `json:"description,omitempty"`
	DefaultValueID *uuid.UUID `json:"defaultValueId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// GetID returns the variable id
func (v *DeploymentVariable) GetID() uuid.UUID { return v.ID }

// ValueVariant identifies which specialization a variable value carries
type ValueVariant string

const (
	// ValueVariantDirect marks a value carrying a literal
	ValueVariantDirect ValueVariant = "direct"
	// ValueVariantReference marks a value resolved against another entity
	// at deploy time
	ValueVariantReference ValueVariant = "reference"
)

// DirectValue carries a literal value
type DirectValue struct {
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// ReferenceValue carries a pointer resolved to another value at deploy time
type ReferenceValue struct {
	Reference string   `json:"reference"`
	Path      []string `json:"path,omitempty"`
}

// DeploymentVariableValue is a polymorphic value: shared base columns plus
// exactly one of the two specializations. Values built through
// NewDirectValue/NewReferenceValue always carry a variant; the
// neither-present state can only appear on rows read from a corrupt store
// and is rejected at the read boundary.
type DeploymentVariableValue struct {
	ID         uuid.UUID `json:"id"`
	VariableID uuid.UUID `json:"variableId"`
	IsDefault  bool      `json:"isDefault"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"createdAt"`

	Direct    *DirectValue    `json:"direct,omitempty"`
	Reference *ReferenceValue `json:"reference,omitempty"`
}

// GetID returns the value id
func (v *DeploymentVariableValue) GetID() uuid.UUID { return v.ID }

// Variant reports which specialization the value carries. Values that
// carry neither report an empty variant; repositories never return such
// values.
func (v *DeploymentVariableValue) Variant() ValueVariant {
	switch {
	case v.Direct != nil:
		return ValueVariantDirect
	case v.Reference != nil:
		return ValueVariantReference
	default:
		return ""
	}
}

// IsDirect reports whether the value carries a literal
func (v *DeploymentVariableValue) IsDirect() bool { return v.Direct != nil }

// IsReference reports whether the value is resolved at deploy time
func (v *DeploymentVariableValue) IsReference() bool { return v.Reference != nil }

// NewDirectValue builds a variable value carrying a literal
func NewDirectValue(variableID uuid.UUID, isDefault bool, priority int, direct DirectValue) *DeploymentVariableValue {
	now := time.Now()
	return &DeploymentVariableValue{
		ID:         uuid.New(),
		VariableID: variableID,
		IsDefault:  isDefault,
		Priority:   priority,
		CreatedAt:  now,
		Direct:     &direct,
	}
}

// NewReferenceValue builds a variable value resolved at deploy time
func NewReferenceValue(variableID uuid.UUID, isDefault bool, priority int, reference ReferenceValue) *DeploymentVariableValue {
	now := time.Now()
	return &DeploymentVariableValue{
		ID:         uuid.New(),
		VariableID: variableID,
		IsDefault:  isDefault,
		Priority:   priority,
		CreatedAt:  now,
		Reference:  &reference,
	}
}

// DeploymentVariableValueInput represents input for creating a variable
// value. Exactly one of Direct or Reference must be set.
type DeploymentVariableValueInput struct {
	VariableID uuid.UUID       `json:"variableId" validate:"required"`
	IsDefault  bool            `json:"isDefault"`
	Priority   int             `json:"priority"`
	Direct     *DirectValue    `json:"direct,omitempty"`
	Reference  *ReferenceValue `json:"reference,omitempty"`
}
