package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
	apperrors "github.com/ctrlplanedev/workspace-engine/internal/pkg/errors"
)

func TestVariableValueRepository_DirectValue(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	value := domain.NewDirectValue(variable.ID, false, 10, domain.DirectValue{
		Value:     "db.internal:5432",
		Sensitive: false,
	})
	_, err := repo.Create(ctx, value)
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, value.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, domain.ValueVariantDirect, fetched.Variant())
	require.NotNil(t, fetched.Direct)
	assert.Equal(t, "db.internal:5432", fetched.Direct.Value)
	assert.Nil(t, fetched.Reference)
	assert.Equal(t, 10, fetched.Priority)
}

func TestVariableValueRepository_ReferenceValue(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	value := domain.NewReferenceValue(variable.ID, false, 0, domain.ReferenceValue{
		Reference: "vpc",
		Path:      []string{"subnets", "0", "id"},
	})
	_, err := repo.Create(ctx, value)
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, value.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, domain.ValueVariantReference, fetched.Variant())
	require.NotNil(t, fetched.Reference)
	assert.Equal(t, "vpc", fetched.Reference.Reference)
	assert.Equal(t, []string{"subnets", "0", "id"}, fetched.Reference.Path)
	assert.Nil(t, fetched.Direct)
}

func TestVariableValueRepository_RejectsMissingVariant(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)

	bare := &domain.DeploymentVariableValue{ID: uuid.New(), VariableID: variable.ID}
	_, err := repo.Create(context.Background(), bare)
	require.Error(t, err)
}

func TestVariableValueRepository_DefaultPointerMoves(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	values := NewVariableValueRepository(db, workspaceID)
	variables := NewVariableRepository(db, workspaceID)
	ctx := context.Background()

	first := domain.NewDirectValue(variable.ID, true, 0, domain.DirectValue{Value: "a"})
	_, err := values.Create(ctx, first)
	require.NoError(t, err)

	fetched, err := variables.Get(ctx, variable.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.DefaultValueID)
	assert.Equal(t, first.ID, *fetched.DefaultValueID)

	// A second default moves the pointer; the first value keeps its own
	// is_default flag untouched.
	second := domain.NewDirectValue(variable.ID, true, 0, domain.DirectValue{Value: "b"})
	_, err = values.Create(ctx, second)
	require.NoError(t, err)

	fetched, err = variables.Get(ctx, variable.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.DefaultValueID)
	assert.Equal(t, second.ID, *fetched.DefaultValueID)

	firstFetched, err := values.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, firstFetched.IsDefault)
}

func TestVariableValueRepository_UpdatePreservesVariant(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	value := domain.NewDirectValue(variable.ID, false, 0, domain.DirectValue{Value: "literal"})
	_, err := repo.Create(ctx, value)
	require.NoError(t, err)

	value.Direct.Value = "rewritten"
	value.Priority = 5
	_, err = repo.Update(ctx, value)
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, value.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, domain.ValueVariantDirect, fetched.Variant())
	require.NotNil(t, fetched.Direct)
	assert.Equal(t, "rewritten", fetched.Direct.Value)
	assert.Equal(t, 5, fetched.Priority)
}

func TestVariableValueRepository_UpdateRejectsVariantChange(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	value := domain.NewDirectValue(variable.ID, false, 0, domain.DirectValue{Value: "literal"})
	_, err := repo.Create(ctx, value)
	require.NoError(t, err)

	value.Direct = nil
	value.Reference = &domain.ReferenceValue{Reference: "cluster", Path: []string{"endpoint"}}
	_, err = repo.Update(ctx, value)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	fetched, err := repo.Get(ctx, value.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, domain.ValueVariantDirect, fetched.Variant())
	require.NotNil(t, fetched.Direct)
	assert.Equal(t, "literal", fetched.Direct.Value)
}

func TestVariableValueRepository_DeleteClearsDefaultPointer(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	values := NewVariableValueRepository(db, workspaceID)
	variables := NewVariableRepository(db, workspaceID)
	ctx := context.Background()

	value := domain.NewDirectValue(variable.ID, true, 0, domain.DirectValue{Value: "a", Sensitive: true})
	_, err := values.Create(ctx, value)
	require.NoError(t, err)

	snapshot, err := values.Delete(ctx, value.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	require.NotNil(t, snapshot.Direct)
	assert.True(t, snapshot.Direct.Sensitive)

	fetched, err := variables.Get(ctx, variable.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.DefaultValueID)

	gone, err := values.Get(ctx, value.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestVariableValueRepository_CorruptRowIsFiltered(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	healthy := domain.NewDirectValue(variable.ID, false, 0, domain.DirectValue{Value: "ok"})
	_, err := repo.Create(ctx, healthy)
	require.NoError(t, err)

	// Insert a base row with no specialization, bypassing the repository.
	orphanID := uuid.New()
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO deployment_variable_values (id, variable_id, is_default, priority) VALUES ($1, $2, false, 0)`,
		orphanID, variable.ID,
	)
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, orphanID)
	require.NoError(t, err)
	assert.Nil(t, fetched)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, healthy.ID, all[0].ID)
}

func TestVariableValueRepository_CorruptRowIsDeletable(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	// Insert a base row with no specialization, bypassing the repository.
	orphanID := uuid.New()
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO deployment_variable_values (id, variable_id, is_default, priority) VALUES ($1, $2, false, 0)`,
		orphanID, variable.ID,
	)
	require.NoError(t, err)

	// No merged snapshot exists for the orphan, but the base row must
	// still come out.
	snapshot, err := repo.Delete(ctx, orphanID)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	var remaining int
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deployment_variable_values WHERE id = $1`, orphanID,
	).Scan(&remaining)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestVariableValueRepository_UpdateCannotCrossWorkspaces(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ownerID := seedWorkspace(t, db)
	ownerSys := seedSystem(t, db, ownerID)
	ownerDep := seedDeployment(t, db, ownerID, ownerSys.ID)
	ownerVariable := seedVariable(t, db, ownerID, ownerDep.ID)

	ownerRepo := NewVariableValueRepository(db, ownerID)
	ctx := context.Background()

	value := domain.NewDirectValue(ownerVariable.ID, false, 0, domain.DirectValue{Value: "owned"})
	_, err := ownerRepo.Create(ctx, value)
	require.NoError(t, err)

	otherID := seedWorkspace(t, db)
	otherSys := seedSystem(t, db, otherID)
	otherDep := seedDeployment(t, db, otherID, otherSys.ID)
	otherVariable := seedVariable(t, db, otherID, otherDep.ID)

	// Reusing the owner's value id with a variable from the other
	// workspace must not re-home the row.
	hijack := domain.NewDirectValue(otherVariable.ID, false, 0, domain.DirectValue{Value: "hijacked"})
	hijack.ID = value.ID
	_, err = NewVariableValueRepository(db, otherID).Update(ctx, hijack)
	require.Error(t, err)

	fetched, err := ownerRepo.Get(ctx, value.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, ownerVariable.ID, fetched.VariableID)
	require.NotNil(t, fetched.Direct)
	assert.Equal(t, "owned", fetched.Direct.Value)
}

func TestVariableValueRepository_GetAllOrdersByPriority(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	sys := seedSystem(t, db, workspaceID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	variable := seedVariable(t, db, workspaceID, dep.ID)

	repo := NewVariableValueRepository(db, workspaceID)
	ctx := context.Background()

	low := domain.NewDirectValue(variable.ID, false, 1, domain.DirectValue{Value: "low"})
	high := domain.NewDirectValue(variable.ID, false, 100, domain.DirectValue{Value: "high"})
	_, err := repo.Create(ctx, low)
	require.NoError(t, err)
	_, err = repo.Create(ctx, high)
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, high.ID, all[0].ID)
	assert.Equal(t, low.ID, all[1].ID)
}
