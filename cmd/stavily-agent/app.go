package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/logger"
	"github.com/Stavily/06-Plugins/internal/plugin"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// app bundles what the one-off commands need outside the daemon graph.
type app struct {
	config  *config.Config
	logger  *zerolog.Logger
	manager *plugin.Manager
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewLogger(cfg)

	// Plugins read the demo flag from the environment, builtin and exec alike.
	if err := os.Setenv(pluginapi.DemoModeEnv, strconv.FormatBool(cfg.DemoMode)); err != nil {
		return nil, err
	}

	manager := plugin.NewManager(log)
	if err := manager.LoadPlugins(ctx, cfg.Plugins); err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}

	return &app{config: cfg, logger: log, manager: manager}, nil
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Timeouts.Lifecycle)
	defer cancel()
	a.manager.Shutdown(ctx)
}
