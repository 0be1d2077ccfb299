package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrlplanedev/workspace-engine/internal/domain"
)

func TestResourceRepository_CreateAndGet(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, map[string]string{
		"region": "us-east-1",
		"tier":   "prod",
	})

	fetched, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, res.ID, fetched.ID)
	assert.Equal(t, res.Name, fetched.Name)
	assert.Equal(t, map[string]string{"region": "us-east-1", "tier": "prod"}, fetched.Metadata)
}

func TestResourceRepository_EmptyMetadataIsNotNil(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, nil)

	fetched, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.NotNil(t, fetched.Metadata)
	assert.Empty(t, fetched.Metadata)
}

func TestResourceRepository_GetMissingReturnsNil(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)

	fetched, err := repo.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestResourceRepository_DuplicateCreateKeepsStoredRow(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, map[string]string{"tier": "prod"})

	dup := *res
	dup.Name = "replacement"
	dup.Identifier = "test/" + uuid.NewString()
	_, err := repo.Create(ctx, &dup)
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "test-resource", fetched.Name)
	assert.Equal(t, map[string]string{"tier": "prod"}, fetched.Metadata)
}

func TestResourceRepository_UpdateReplacesMetadata(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, map[string]string{"region": "us-east-1", "tier": "prod"})

	res.Metadata = map[string]string{"region": "eu-west-1"}
	res.Name = "renamed"
	_, err := repo.Update(ctx, res)
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "renamed", fetched.Name)
	assert.Equal(t, map[string]string{"region": "eu-west-1"}, fetched.Metadata)
}

func TestResourceRepository_DeleteReturnsSnapshot(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, map[string]string{"tier": "prod"})

	snapshot, err := repo.Delete(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, res.ID, snapshot.ID)
	assert.Equal(t, map[string]string{"tier": "prod"}, snapshot.Metadata)

	fetched, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestResourceRepository_WorkspaceIsolation(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	otherWorkspaceID := seedWorkspace(t, db)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, nil)

	// The other workspace's repository cannot see, delete, or observe the
	// resource in any way.
	other := NewResourceRepository(db, otherWorkspaceID)

	fetched, err := other.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)

	exists, err := other.Exists(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	snapshot, err := other.Delete(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	// Still present in its own workspace.
	exists, err = NewResourceRepository(db, workspaceID).Exists(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestResourceRepository_UpdateCannotCrossWorkspaces(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	otherWorkspaceID := seedWorkspace(t, db)
	ctx := context.Background()

	res := seedResource(t, db, workspaceID, map[string]string{"env": "prod"})

	// Reusing the id from the other workspace's repository must neither
	// overwrite the row nor its metadata.
	hijack := &domain.Resource{
		ID:         res.ID,
		Name:       "hijacked",
		Kind:       res.Kind,
		Identifier: "other/" + uuid.NewString(),
		Version:    res.Version,
		Metadata:   map[string]string{},
	}
	_, err := NewResourceRepository(db, otherWorkspaceID).Update(ctx, hijack)
	require.Error(t, err)

	fetched, err := NewResourceRepository(db, workspaceID).Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "test-resource", fetched.Name)
	assert.Equal(t, map[string]string{"env": "prod"}, fetched.Metadata)
}

func TestResourceRepository_GetAll(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	workspaceID := seedWorkspace(t, db)
	repo := NewResourceRepository(db, workspaceID)

	seedResource(t, db, workspaceID, map[string]string{"a": "1"})
	seedResource(t, db, workspaceID, nil)
	seedResource(t, db, workspaceID, map[string]string{"b": "2", "c": "3"})

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, res := range all {
		assert.NotNil(t, res.Metadata)
	}
}
