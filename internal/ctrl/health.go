package ctrl

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/config"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

type HealthMonitorController struct {
	config  *config.Config
	plugins PluginRepository
	manager PluginManager
	logger  zerolog.Logger
}

func NewHealthMonitorController(config *config.Config, plugins PluginRepository, manager PluginManager, logger *zerolog.Logger) *HealthMonitorController {
	return &HealthMonitorController{
		config:  config,
		plugins: plugins,
		manager: manager,
		logger:  logger.With().Str("controller", "health").Logger(),
	}
}

// Execute sweeps every plugin with get_health and records the report.
// A plugin that cannot answer at all is marked failed.
func (ctrl *HealthMonitorController) Execute(ctx context.Context) {
	plugins, err := ctrl.plugins.List(ctx)
	if err != nil {
		ctrl.logger.Error().Err(err).Msg("failed to list plugins")
		return
	}

	for _, pluginEntity := range plugins {
		logger := ctrl.logger.With().Str("plugin", string(pluginEntity.Id())).Logger()

		client, err := ctrl.manager.Get(string(pluginEntity.Id()))
		if err != nil {
			logger.Error().Err(err).Msg("failed to get plugin client")
			continue
		}

		callCtx, cancel := context.WithTimeout(logger.WithContext(ctx), ctrl.config.Timeouts.Lifecycle)
		report, err := client.GetHealth(callCtx)
		cancel()
		if err != nil {
			if isProcessFault(err) {
				pluginEntity.MarkFailed(err)
				logger.Error().Err(err).Msg("plugin is unreachable")
			} else {
				pluginEntity.RecordError(err)
				logger.Warn().Err(err).Msg("health probe failed")
			}
			continue
		}

		pluginEntity.RecordHealth(*report)

		switch report.Status {
		case pluginapi.HealthUnhealthy:
			logger.Error().Str("message", report.Message).Msg("plugin unhealthy")
		case pluginapi.HealthDegraded:
			logger.Warn().Str("message", report.Message).Msg("plugin degraded")
		default:
			logger.Debug().Msg("plugin healthy")
		}
	}
}
