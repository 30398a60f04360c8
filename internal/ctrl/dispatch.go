package ctrl

import (
	"context"
	"errors"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/entity"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

type DispatchController struct {
	config  *config.Config
	plugins PluginRepository
	manager PluginManager
	queue   EventQueue
	logger  zerolog.Logger
}

func NewDispatchController(config *config.Config, plugins PluginRepository, manager PluginManager, queue EventQueue, logger *zerolog.Logger) *DispatchController {
	return &DispatchController{
		config:  config,
		plugins: plugins,
		manager: manager,
		queue:   queue,
		logger:  logger.With().Str("controller", "dispatch").Logger(),
	}
}

// Run consumes the event queue until the context ends or the queue is
// closed.
func (ctrl *DispatchController) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ctrl.queue.Dequeue():
			if !ok {
				return
			}
			ctrl.Execute(ctx, event)
		}
	}
}

// Execute routes one trigger event to the action plugin its route names
// and executes it. Routes are evaluated in order; the first match wins.
func (ctrl *DispatchController) Execute(ctx context.Context, event *pluginapi.TriggerEvent) {
	route, ok := ctrl.match(event.Type)
	if !ok {
		ctrl.logger.Debug().Str("type", event.Type).Msg("no route for event")
		return
	}

	logger := ctrl.logger.With().Str("event", event.ID).Str("type", event.Type).Str("plugin", route.Plugin).Logger()

	client, err := ctrl.manager.Get(route.Plugin)
	if err != nil {
		logger.Error().Err(err).Msg("failed to get plugin client")
		return
	}

	pluginEntity, err := ctrl.plugins.Find(ctx, entity.PluginId(route.Plugin))
	if err != nil {
		logger.Error().Err(err).Msg("failed to find plugin record")
		return
	}

	params := make(map[string]interface{}, len(event.Data)+len(route.Parameters))
	for k, v := range event.Data {
		params[k] = v
	}
	for k, v := range route.Parameters {
		params[k] = v
	}

	if schema := pluginEntity.Schema(); schema != nil {
		params = schema.ApplyDefaults(params)
		if err := schema.Validate(params); err != nil {
			pluginEntity.RecordError(err)
			logger.Warn().Err(err).Msg("action parameters rejected")
			return
		}
	}

	request := &pluginapi.ActionRequest{
		ID:         uuid.NewString(),
		Parameters: params,
	}

	callCtx, cancel := context.WithTimeout(logger.WithContext(ctx), ctrl.config.Timeouts.Execute)
	result, err := client.ExecuteAction(callCtx, request)
	cancel()
	if err != nil {
		if isProcessFault(err) {
			pluginEntity.MarkFailed(err)
		} else {
			pluginEntity.RecordError(err)
		}
		logger.Error().Err(err).Msg("action execution failed")
		return
	}

	if result.ID != request.ID {
		logger.Warn().Str("request", request.ID).Str("result", result.ID).Msg("action result id does not match request")
	}

	if result.Status == pluginapi.ResultFailed {
		pluginEntity.RecordError(errors.New(result.Error))
		logger.Warn().Str("request", request.ID).Str("error", result.Error).Msg("action reported failure")
		return
	}

	logger.Info().Str("request", request.ID).Float64("duration", result.Duration).Msg("action completed")
}

func (ctrl *DispatchController) match(eventType string) (config.Route, bool) {
	for _, route := range ctrl.config.Routes {
		if ok, err := path.Match(route.Match, eventType); err == nil && ok {
			return route, true
		}
	}
	return config.Route{}, false
}
