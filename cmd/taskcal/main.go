package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
	"github.com/felixgeelhaar/taskcal/adapter/cli/task"
	"github.com/felixgeelhaar/taskcal/internal/app"
	"github.com/felixgeelhaar/taskcal/pkg/config"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := observability.LoggerFromEnv()
	cli.SetLogger(logger)

	// Cancelled on SIGINT/SIGTERM so serve and events watch shut down cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			return 1
		}
		// Help and version still work without a store.
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()
		cli.SetApp(cli.NewApp(container))
	}

	cli.AddCommand(task.Commands()...)
	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
