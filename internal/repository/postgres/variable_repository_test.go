package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
)

func TestVariableRepository_CreateAndGet(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)

	repo := NewVariableRepository(db, workspaceID)
	ctx := context.Background()

	variable := seedVariable(t, db, workspaceID, dep.ID)

	fetched, err := repo.Get(ctx, variable.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, variable.Key, fetched.Key)
	assert.Equal(t, dep.ID, fetched.DeploymentID)
	assert.Nil(t, fetched.DefaultValueID)
}

func TestVariableRepository_CreateRejectsForeignDeployment(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	otherWorkspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, otherWorkspaceID)
	dep := seedDeployment(t, db, otherWorkspaceID, sys.ID)

	repo := NewVariableRepository(db, workspaceID)
	_, err := repo.Create(context.Background(), &domain.DeploymentVariable{
		ID:           uuid.New(),
		DeploymentID: dep.ID,
		Key:          "host",
	})
	require.Error(t, err)
}

func TestVariableRepository_UpdateRejectsForeignDefaultValue(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)
	otherVariable := seedVariable(t, db, workspaceID, dep.ID)

	values := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	foreign := domain.NewDirectValue(otherVariable.ID, false, 0, domain.DirectValue{Value: "x"})
	_, err := values.Create(ctx, foreign)
	require.NoError(t, err)

	// The default pointer must reference one of the variable's own values.
	variable.DefaultValueID = &foreign.ID
	_, err = NewVariableRepository(db, workspaceID).Update(ctx, variable)
	require.Error(t, err)
}

func TestVariableRepository_DeleteReturnsSnapshot(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableRepository(db, workspaceID)
	ctx := context.Background()

	snapshot, err := repo.Delete(ctx, variable.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, variable.ID, snapshot.ID)

	fetched, err := repo.Get(ctx, variable.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}
