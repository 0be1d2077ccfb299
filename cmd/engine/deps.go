package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ctrlplanedev/workspace-engine/internal/app/migrate"
	"github.com/ctrlplanedev/workspace-engine/internal/config"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/database"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/logger"
	"github.com/ctrlplanedev/workspace-engine/internal/store"
)

// Dependencies holds all engine dependencies
type Dependencies struct {
	Config      *config.Config
	WorkspaceID uuid.UUID

	Postgres *database.PostgresDB
	Store    *store.Store
}

// initDependencies connects to PostgreSQL, optionally applies migrations,
// and hydrates the workspace store
func initDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	workspaceID, err := uuid.Parse(cfg.Engine.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("engine_workspace_id must be a valid uuid: %w", err)
	}

	if cfg.Migrations.Auto {
		runner, err := migrate.New(cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		if err := runner.Ensure(ctx); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	pg, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.Postgres.Host))

	hydrateCtx, cancel := context.WithTimeout(ctx, cfg.Engine.HydrationTimeout)
	defer cancel()

	ws, err := store.New(hydrateCtx, pg, workspaceID)
	if err != nil {
		pg.Close()
		return nil, err
	}

	return &Dependencies{
		Config:      cfg,
		WorkspaceID: workspaceID,
		Postgres:    pg,
		Store:       ws,
	}, nil
}

// Close flushes detached writes and releases connections
func (d *Dependencies) Close() {
	if d.Store != nil {
		d.Store.Flush()
	}
	if d.Postgres != nil {
		d.Postgres.Close()
	}
}
