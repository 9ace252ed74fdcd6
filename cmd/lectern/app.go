package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"lectern/internal/config"
	"lectern/internal/repository"
	resourceService "lectern/internal/service/resource"
)

// app is the per-invocation wiring shared by every subcommand
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	courseID string
	services *resourceService.Services
	backends *repository.Backends
}

// openApp connects the configured backends. Callers must Close it.
func openApp(ctx context.Context, cmd *cli.Command) (*app, error) {
	courseID := cmd.String("course")
	if courseID == "" {
		return nil, errors.New("--course (or LECTERN_COURSE) is required")
	}

	cfg := config.Load()
	// The CLI always logs human-readable output to stderr
	cliCfg := *cfg
	cliCfg.Environment = "dev"
	cliCfg.Debug = false
	logger := config.NewLogger(&cliCfg, "lectern", os.Stderr)

	backends, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	services, err := resourceService.SetupServices(backends.Store, backends.Blobs, cfg, logger)
	if err != nil {
		backends.Close()
		return nil, fmt.Errorf("failed to setup services: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		courseID: courseID,
		services: services,
		backends: backends,
	}, nil
}

func (a *app) Close() {
	if err := a.backends.Close(); err != nil {
		a.logger.Warn("failed to close backends", "error", err)
	}
}

// withApp adapts an action that needs the wired services
func withApp(fn func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := openApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a)
	}
}
