package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/Stavily/06-Plugins/internal/ctrl"
	"github.com/Stavily/06-Plugins/internal/entity"
	"github.com/Stavily/06-Plugins/pluginapi"
)

var _ ctrl.PluginRepository = &Plugins{}

type Plugins struct {
	mutex    sync.RWMutex
	entities map[entity.PluginId]*entity.Plugin
}

func NewPlugins() *Plugins {
	return &Plugins{
		entities: make(map[entity.PluginId]*entity.Plugin),
	}
}

func (r *Plugins) List(ctx context.Context) ([]*entity.Plugin, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plugins := make([]*entity.Plugin, 0, len(r.entities))
	for _, plugin := range r.entities {
		plugins = append(plugins, plugin)
	}
	sortPlugins(plugins)

	return plugins, nil
}

func (r *Plugins) ListByKind(ctx context.Context, kind pluginapi.Capability) ([]*entity.Plugin, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plugins := make([]*entity.Plugin, 0)
	for _, plugin := range r.entities {
		if plugin.Kind() == kind {
			plugins = append(plugins, plugin)
		}
	}
	sortPlugins(plugins)

	return plugins, nil
}

func (r *Plugins) Find(ctx context.Context, id entity.PluginId) (*entity.Plugin, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plugin, ok := r.entities[id]
	if !ok {
		return nil, entity.ErrPluginNotFound
	}

	return plugin, nil
}

func (r *Plugins) Save(ctx context.Context, plugin *entity.Plugin) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.entities[plugin.Id()] = plugin
}

// sortPlugins keeps listings deterministic for logs and command output.
func sortPlugins(plugins []*entity.Plugin) {
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Id() < plugins[j].Id()
	})
}
