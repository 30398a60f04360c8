package entity

import (
	"sync"
	"time"

	"github.com/Stavily/06-Plugins/pluginapi"
)

type PluginId string

// Plugin is the host's record of one configured plugin: its identity, its
// declared capability, and the latest observations made through the
// transport. Controllers update it from separate goroutines, so the
// mutable part sits behind a mutex.
type Plugin struct {
	id   PluginId
	kind pluginapi.Capability

	mutex      sync.RWMutex
	info       *pluginapi.PluginInfo
	schema     *pluginapi.ConfigSchema
	state      pluginapi.State
	health     *pluginapi.HealthReport
	lastError  string
	errorCount int
	observedAt time.Time
}

func NewPlugin(id PluginId, kind pluginapi.Capability) *Plugin {
	return &Plugin{
		id:    id,
		kind:  kind,
		state: pluginapi.StateUninitialized,
	}
}

func (p *Plugin) Id() PluginId {
	return p.id
}

func (p *Plugin) Kind() pluginapi.Capability {
	return p.kind
}

func (p *Plugin) Info() *pluginapi.PluginInfo {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.info
}

func (p *Plugin) SetInfo(info pluginapi.PluginInfo) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.info = &info
}

// Schema is the parameter schema reported by the plugin at bootstrap:
// the initialize config schema for triggers, the action parameter
// schema for actions.
func (p *Plugin) Schema() *pluginapi.ConfigSchema {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.schema
}

func (p *Plugin) SetSchema(schema pluginapi.ConfigSchema) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.schema = &schema
}

func (p *Plugin) State() pluginapi.State {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.state
}

func (p *Plugin) SetState(state pluginapi.State) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.state = state
	p.observedAt = time.Now()
}

// MarkFailed records a fault observed through the transport and moves the
// host-side state to failed.
func (p *Plugin) MarkFailed(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.state = pluginapi.StateFailed
	p.lastError = err.Error()
	p.errorCount++
	p.observedAt = time.Now()
}

// RecordError counts a failure that does not change the lifecycle state,
// such as a failed action execution.
func (p *Plugin) RecordError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.lastError = err.Error()
	p.errorCount++
}

func (p *Plugin) RecordHealth(report pluginapi.HealthReport) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.health = &report
	p.observedAt = time.Now()
}

func (p *Plugin) Health() *pluginapi.HealthReport {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.health
}

func (p *Plugin) LastError() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.lastError
}

func (p *Plugin) ErrorCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.errorCount
}

func (p *Plugin) ObservedAt() time.Time {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.observedAt
}
