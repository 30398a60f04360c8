//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/ctrl"
	"github.com/Stavily/06-Plugins/internal/daemon"
	"github.com/Stavily/06-Plugins/internal/logger"
	"github.com/Stavily/06-Plugins/internal/plugin"
	"github.com/Stavily/06-Plugins/internal/queue"
	"github.com/Stavily/06-Plugins/internal/repo"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

const eventQueueSize = 64

func setup() (*daemon.Daemon, error) {
	wire.Build(
		config.Load,
		logger.DefaultSet,
		plugin.NewManager,
		wire.Bind(new(ctrl.PluginManager), new(*plugin.Manager)),
		provideEventQueue,
		wire.Bind(new(ctrl.EventQueue), new(*queue.Queue[*pluginapi.TriggerEvent])),
		repo.DefaultSet,
		ctrl.DefaultSet,
		daemon.New,
	)

	return nil, nil
}

func provideEventQueue() *queue.Queue[*pluginapi.TriggerEvent] {
	return queue.New[*pluginapi.TriggerEvent](eventQueueSize)
}
