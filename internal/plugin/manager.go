package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// Manager owns one Client per configured plugin. Plugins are loaded
// once at startup; afterwards the map is read-only.
type Manager struct {
	logger  zerolog.Logger
	plugins map[string]*Client
}

func NewManager(logger *zerolog.Logger) *Manager {
	return &Manager{
		logger:  *logger,
		plugins: make(map[string]*Client),
	}
}

func (m *Manager) LoadPlugins(ctx context.Context, definitions map[string]pluginapi.PluginDefinition) error {
	for name, def := range definitions {
		client, err := m.createPlugin(ctx, name, def)
		if err != nil {
			return fmt.Errorf("failed to create plugin %s: %w", name, err)
		}
		m.plugins[name] = client
	}
	return nil
}

func (m *Manager) Get(name string) (*Client, error) {
	client, ok := m.plugins[name]
	if !ok {
		return nil, fmt.Errorf("plugin %s not found", name)
	}
	return client, nil
}

func (m *Manager) List() []*Client {
	clients := make([]*Client, 0, len(m.plugins))
	for _, client := range m.plugins {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].Id() < clients[j].Id()
	})
	return clients
}

// Shutdown stops every plugin and releases its transport. Failures are
// logged and do not abort the sweep. Plugins that never reached a
// stoppable state are skipped quietly.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, client := range m.List() {
		if _, err := client.Stop(ctx); err != nil && !pluginapi.IsKind(err, pluginapi.InvalidState) {
			m.logger.Warn().Err(err).Str("plugin", client.Id()).Msg("failed to stop plugin")
		}
		if err := client.Close(ctx); err != nil {
			m.logger.Warn().Err(err).Str("plugin", client.Id()).Msg("failed to close plugin transport")
		}
	}
}

func (m *Manager) createPlugin(_ context.Context, name string, def pluginapi.PluginDefinition) (*Client, error) {
	var (
		transport Transport
		err       error
	)

	switch def.Type {
	case "exec":
		transport, err = NewProcess(name, def.Config, m.logger)
	case "builtin":
		transport, err = NewBuiltinPlugin(def.Config)
	default:
		return nil, fmt.Errorf("unsupported plugin type: %s", def.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewClient(name, pluginapi.Capability(def.Kind), transport), nil
}
