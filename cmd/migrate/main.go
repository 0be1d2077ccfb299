package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ctrlplanedev/workspace-engine/internal/app/migrate"
	"github.com/ctrlplanedev/workspace-engine/internal/config"
	"github.com/ctrlplanedev/workspace-engine/internal/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		logger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runner, err := migrate.New(cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("failed to configure migration runner", zap.Error(err))
	}

	switch *command {
	case "up":
		err = runner.Ensure(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		logger.Error("unsupported command", zap.String("command", *command))
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal("migration command failed", zap.String("command", *command), zap.Error(err))
	}

	logger.Info("migration command completed", zap.String("command", *command))
}
