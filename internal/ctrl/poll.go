package ctrl

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/config"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

type PollController struct {
	config  *config.Config
	plugins PluginRepository
	manager PluginManager
	queue   EventQueue
	logger  zerolog.Logger
}

func NewPollController(config *config.Config, plugins PluginRepository, manager PluginManager, queue EventQueue, logger *zerolog.Logger) *PollController {
	return &PollController{
		config:  config,
		plugins: plugins,
		manager: manager,
		queue:   queue,
		logger:  logger.With().Str("controller", "poll").Logger(),
	}
}

// Execute asks every running trigger plugin for detected events and
// feeds them into the dispatch queue.
func (ctrl *PollController) Execute(ctx context.Context) {
	triggers, err := ctrl.plugins.ListByKind(ctx, pluginapi.CapabilityTrigger)
	if err != nil {
		ctrl.logger.Error().Err(err).Msg("failed to list trigger plugins")
		return
	}

	for _, pluginEntity := range triggers {
		if pluginEntity.State() != pluginapi.StateRunning {
			continue
		}

		logger := ctrl.logger.With().Str("plugin", string(pluginEntity.Id())).Logger()

		client, err := ctrl.manager.Get(string(pluginEntity.Id()))
		if err != nil {
			logger.Error().Err(err).Msg("failed to get plugin client")
			continue
		}

		callCtx, cancel := context.WithTimeout(logger.WithContext(ctx), ctrl.config.Timeouts.Detect)
		events, err := client.DetectTriggers(callCtx)
		cancel()
		if err != nil {
			if isProcessFault(err) {
				pluginEntity.MarkFailed(err)
				logger.Error().Err(err).Msg("trigger plugin failed")
			} else {
				pluginEntity.RecordError(err)
				logger.Warn().Err(err).Msg("trigger detection failed")
			}
			continue
		}

		for _, event := range events {
			event := event
			logger.Debug().Str("event", event.ID).Str("type", event.Type).Str("severity", event.Severity).Msg("trigger detected")
			ctrl.queue.Enqueue(&event)
		}
	}
}
