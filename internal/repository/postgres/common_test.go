package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ctrlplanedev/workspace-engine/internal/config"
	"github.com/ctrlplanedev/workspace-engine/internal/domain"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/database"
)

// getTestDB returns a database connection for integration tests.
// Returns nil if the database is not available (skips tests).
func getTestDB(t *testing.T) *database.PostgresDB {
	if os.Getenv("POSTGRES_TEST_HOST") == "" {
		t.Skip("Skipping integration test: POSTGRES_TEST_HOST not set")
		return nil
	}

	cfg := config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_TEST_HOST"),
		Port:     5432,
		User:     os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASS"),
		Database: os.Getenv("POSTGRES_TEST_DB"),
		SSLMode:  "disable",
		MaxConns: 5,
		MinConns: 1,
	}

	if cfg.Database == "" {
		cfg.Database = "test_ctrlplane"
	}
	if cfg.User == "" {
		cfg.User = "postgres"
	}

	db, err := database.NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to PostgreSQL: %v", err)
		return nil
	}

	return db
}

// seedWorkspace inserts a workspace row and registers cleanup. Deleting
// the workspace cascades through every scoped table.
func seedWorkspace(t *testing.T, db *database.PostgresDB) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, slug) VALUES ($1, $2, $3)`,
		id, "test-workspace", "test-"+id.String(),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM workspaces WHERE id = $1`, id)
	})
	return id
}

// seedSystem creates a system through the repository under test
func seedSystem(t *testing.T, db *database.PostgresDB, workspaceID uuid.UUID) *domain.System {
	t.Helper()
	sys := &domain.System{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        "test-system",
		Slug:        "test-system-" + uuid.NewString()[:8],
	}
	created, err := NewSystemRepository(db, workspaceID).Create(context.Background(), sys)
	require.NoError(t, err)
	return created
}

// seedDeployment creates a deployment under the given system
func seedDeployment(t *testing.T, db *database.PostgresDB, workspaceID, systemID uuid.UUID) *domain.Deployment {
	t.Helper()
	dep := &domain.Deployment{
		ID:       uuid.New(),
		SystemID: systemID,
		Name:     "test-deployment",
		Slug:     "test-deployment-" + uuid.NewString()[:8],
	}
	created, err := NewDeploymentRepository(db, workspaceID).Create(context.Background(), dep)
	require.NoError(t, err)
	return created
}

// seedEnvironment creates an environment under the given system
func seedEnvironment(t *testing.T, db *database.PostgresDB, workspaceID, systemID uuid.UUID) *domain.Environment {
	t.Helper()
	env := &domain.Environment{
		ID:       uuid.New(),
		SystemID: systemID,
		Name:     "test-environment",
	}
	created, err := NewEnvironmentRepository(db, workspaceID).Create(context.Background(), env)
	require.NoError(t, err)
	return created
}

// seedResource creates a resource with the given metadata
func seedResource(t *testing.T, db *database.PostgresDB, workspaceID uuid.UUID, metadata map[string]string) *domain.Resource {
	t.Helper()
	res := &domain.Resource{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        "test-resource",
		Kind:        "kubernetes-cluster",
		Identifier:  "test/" + uuid.NewString(),
		Version:     "v1",
		Metadata:    metadata,
	}
	created, err := NewResourceRepository(db, workspaceID).Create(context.Background(), res)
	require.NoError(t, err)
	return created
}

// seedVariable creates a deployment variable under the given deployment
func seedVariable(t *testing.T, db *database.PostgresDB, workspaceID, deploymentID uuid.UUID) *domain.DeploymentVariable {
	t.Helper()
	v := &domain.DeploymentVariable{
		ID:           uuid.New(),
		DeploymentID: deploymentID,
		Key:          "test-key-" + uuid.NewString()[:8],
	}
	created, err := NewVariableRepository(db, workspaceID).Create(context.Background(), v)
	require.NoError(t, err)
	return created
}

// seedReleaseTarget creates a release target binding resource, environment
// and deployment
func seedReleaseTarget(t *testing.T, db *database.PostgresDB, workspaceID uuid.UUID) *domain.ReleaseTarget {
	t.Helper()
	sys := seedSystem(t, db, workspaceID)
	env := seedEnvironment(t, db, workspaceID, sys.ID)
	dep := seedDeployment(t, db, workspaceID, sys.ID)
	res := seedResource(t, db, workspaceID, map[string]string{})

	rt := &domain.ReleaseTarget{
		ID:            uuid.New(),
		ResourceID:    res.ID,
		EnvironmentID: env.ID,
		DeploymentID:  dep.ID,
	}
	created, err := NewReleaseTargetRepository(db, workspaceID).Create(context.Background(), rt)
	require.NoError(t, err)
	return created
}
