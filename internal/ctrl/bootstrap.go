package ctrl

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/entity"
	plugin "github.com/Stavily/06-Plugins/internal/plugin"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

type BootstrapController struct {
	manager PluginManager
	config  *config.Config
	plugins PluginRepository
	logger  zerolog.Logger
}

func NewBootstrapController(manager PluginManager, config *config.Config, plugins PluginRepository, logger *zerolog.Logger) *BootstrapController {
	return &BootstrapController{
		manager: manager,
		config:  config,
		plugins: plugins,
		logger:  logger.With().Str("controller", "bootstrap").Logger(),
	}
}

// Execute brings every loaded plugin to Running: identity check, schema
// fetch, config validation, initialize, start. A failing plugin is
// marked failed and skipped so it never blocks the rest.
func (ctrl *BootstrapController) Execute(ctx context.Context) {
	for _, client := range ctrl.manager.List() {
		pluginEntity := entity.NewPlugin(entity.PluginId(client.Id()), client.Kind())
		ctrl.plugins.Save(ctx, pluginEntity)

		logger := ctrl.logger.With().Str("plugin", client.Id()).Logger()

		if err := ctrl.bringUp(logger.WithContext(ctx), client, pluginEntity); err != nil {
			logger.Error().Err(err).Msg("failed to bring up plugin")
			pluginEntity.MarkFailed(err)
			continue
		}

		logger.Info().Str("version", pluginEntity.Info().Version).Msg("plugin running")
	}
}

func (ctrl *BootstrapController) bringUp(ctx context.Context, client *plugin.Client, pluginEntity *entity.Plugin) error {
	callCtx, cancel := ctrl.callCtx(ctx)
	info, err := client.GetInfo(callCtx)
	cancel()
	if err != nil {
		return err
	}
	pluginEntity.SetInfo(*info)

	if info.Type != string(client.Kind()) {
		return fmt.Errorf("plugin declares type %q but is configured as %q", info.Type, client.Kind())
	}

	schema, err := ctrl.fetchSchema(ctx, client)
	if err != nil {
		return err
	}
	pluginEntity.SetSchema(*schema)

	values := ctrl.config.Plugins[client.Id()].Config
	if client.Kind() == pluginapi.CapabilityTrigger {
		// The trigger schema governs the initialize config. Action
		// schemas describe action parameters and are checked at
		// dispatch time instead.
		values = schema.ApplyDefaults(values)
		if err := schema.Validate(values); err != nil {
			return err
		}
	}

	callCtx, cancel = ctrl.callCtx(ctx)
	_, err = client.Initialize(callCtx, values)
	cancel()
	if err != nil {
		return err
	}

	callCtx, cancel = ctrl.callCtx(ctx)
	status, err := client.Start(callCtx)
	cancel()
	if err != nil {
		return err
	}
	pluginEntity.SetState(status.State)

	return nil
}

func (ctrl *BootstrapController) fetchSchema(ctx context.Context, client *plugin.Client) (*pluginapi.ConfigSchema, error) {
	callCtx, cancel := ctrl.callCtx(ctx)
	defer cancel()

	if client.Kind() == pluginapi.CapabilityTrigger {
		return client.GetTriggerConfig(callCtx)
	}
	return client.GetActionConfig(callCtx)
}

func (ctrl *BootstrapController) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ctrl.config.Timeouts.Lifecycle)
}
