package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/ctrl"
	"github.com/Stavily/06-Plugins/internal/plugin"
	"github.com/Stavily/06-Plugins/internal/queue"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

type Daemon struct {
	config       *config.Config
	manager      *plugin.Manager
	events       *queue.Queue[*pluginapi.TriggerEvent]
	bootCtrl     *ctrl.BootstrapController
	pollCtrl     *ctrl.PollController
	dispatchCtrl *ctrl.DispatchController
	healthCtrl   *ctrl.HealthMonitorController
	logger       zerolog.Logger
}

func New(
	config *config.Config,
	manager *plugin.Manager,
	events *queue.Queue[*pluginapi.TriggerEvent],
	boot *ctrl.BootstrapController,
	poll *ctrl.PollController,
	dispatch *ctrl.DispatchController,
	health *ctrl.HealthMonitorController,
	logger *zerolog.Logger) *Daemon {
	return &Daemon{
		config:       config,
		manager:      manager,
		events:       events,
		bootCtrl:     boot,
		pollCtrl:     poll,
		dispatchCtrl: dispatch,
		healthCtrl:   health,
		logger:       logger.With().Str("component", "daemon").Logger(),
	}
}

func (d *Daemon) Run(ctx context.Context) error {
	if len(d.config.Plugins) == 0 {
		return errors.New("no plugins configured")
	}

	daemonCtx, cancel := context.WithCancel(ctx)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	defer func() {
		d.logger.Info().Msg("shutting down")
		signal.Stop(signalChan)
		close(signalChan)
		cancel()
		d.events.Close()
		d.shutdownPlugins()
	}()

	d.setDemoMode()
	if err := d.manager.LoadPlugins(daemonCtx, d.config.Plugins); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	d.bootCtrl.Execute(daemonCtx)

	// Start the dispatch worker
	go d.dispatchCtrl.Run(daemonCtx)

	// Trigger initial poll
	d.pollCtrl.Execute(daemonCtx)

	d.logger.Info().Msgf("daemon started with poll interval %s", d.config.PollInterval)

	pollTicker := time.NewTicker(d.config.PollInterval)
	defer pollTicker.Stop()
	healthTicker := time.NewTicker(d.config.HealthInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-daemonCtx.Done():
			return nil
		case <-signalChan:
			return nil
		case <-pollTicker.C:
			d.pollCtrl.Execute(daemonCtx)
		case <-healthTicker.C:
			d.healthCtrl.Execute(daemonCtx)
		}
	}
}

// RunOneshot runs one full cycle: bootstrap, a single poll, dispatch of
// everything the poll produced, a health sweep, then shutdown.
func (d *Daemon) RunOneshot(ctx context.Context) error {
	if len(d.config.Plugins) == 0 {
		return errors.New("no plugins configured")
	}

	d.logger.Info().Msg("running in oneshot mode")

	d.setDemoMode()
	if err := d.manager.LoadPlugins(ctx, d.config.Plugins); err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	d.bootCtrl.Execute(ctx)

	d.pollCtrl.Execute(ctx)

	// A closed queue lets the dispatch loop drain and return
	d.events.Close()
	d.dispatchCtrl.Run(ctx)

	d.healthCtrl.Execute(ctx)

	d.shutdownPlugins()
	d.logger.Info().Msg("oneshot mode completed")
	return nil
}

// setDemoMode publishes the configured demo mode through the environment
// so builtin plugins and spawned subprocesses see the same value.
func (d *Daemon) setDemoMode() {
	if err := os.Setenv(pluginapi.DemoModeEnv, strconv.FormatBool(d.config.DemoMode)); err != nil {
		d.logger.Warn().Err(err).Msg("failed to set demo mode")
	}
}

func (d *Daemon) shutdownPlugins() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.Timeouts.Lifecycle)
	defer cancel()
	d.manager.Shutdown(shutdownCtx)
}
