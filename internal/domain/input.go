package domain

import (
	"github.com/google/uuid"

	apperrors "github.com/ctrlplanedev/workspace-engine/internal/pkg/errors"
	"github.com/ctrlplanedev/workspace-engine/internal/validator"
)

// NewResourceFromInput validates the input and builds a resource. The
// metadata map is always non-nil on the result.
func NewResourceFromInput(workspaceID uuid.UUID, in ResourceInput) (*Resource, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &Resource{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        in.Name,
		Kind:        in.Kind,
		Identifier:  in.Identifier,
		Version:     in.Version,
		Config:      in.Config,
		Metadata:    metadata,
	}, nil
}

// NewVariableValueFromInput validates the input and builds a variable
// value carrying exactly one specialization
func NewVariableValueFromInput(in DeploymentVariableValueInput) (*DeploymentVariableValue, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Direct == nil && in.Reference == nil {
		return nil, apperrors.Validation("variable value input must carry a direct or reference specialization")
	}
	if in.Direct != nil && in.Reference != nil {
		return nil, apperrors.Validation("variable value input cannot carry both specializations")
	}

	if in.Direct != nil {
		return NewDirectValue(in.VariableID, in.IsDefault, in.Priority, *in.Direct), nil
	}
	return NewReferenceValue(in.VariableID, in.IsDefault, in.Priority, *in.Reference), nil
}
