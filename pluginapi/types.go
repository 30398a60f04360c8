package pluginapi

import (
	"encoding/json"
	"time"
)

// Config holds the configuration payload delivered with an initialize
// request. Values are plain JSON-decoded types.
type Config map[string]interface{}

// PluginDefinition describes one configured plugin on the host side. Type
// selects the transport (exec or builtin), Kind the capability family, and
// Config carries everything else: command/args/env/dir for exec plugins,
// name for builtins, plus the configuration forwarded with initialize.
type PluginDefinition struct {
	Type   string `mapstructure:"type"`
	Kind   string `mapstructure:"kind"`
	Config Config `mapstructure:",remain"`
}

// Capability names a family of plugin behavior.
type Capability string

const (
	CapabilityTrigger Capability = "trigger"
	CapabilityAction  Capability = "action"
)

// Protocol actions

const (
	ActionGetInfo          = "get_info"
	ActionInitialize       = "initialize"
	ActionStart            = "start"
	ActionStop             = "stop"
	ActionGetStatus        = "get_status"
	ActionGetHealth        = "get_health"
	ActionDetectTriggers   = "detect_triggers"
	ActionGetTriggerConfig = "get_trigger_config"
	ActionExecuteAction    = "execute_action"
	ActionGetActionConfig  = "get_action_config"
)

// actionCapability maps every protocol action to the capability that
// provides it. Base actions map to the empty capability.
var actionCapability = map[string]Capability{
	ActionGetInfo:          "",
	ActionInitialize:       "",
	ActionStart:            "",
	ActionStop:             "",
	ActionGetStatus:        "",
	ActionGetHealth:        "",
	ActionDetectTriggers:   CapabilityTrigger,
	ActionGetTriggerConfig: CapabilityTrigger,
	ActionExecuteAction:    CapabilityAction,
	ActionGetActionConfig:  CapabilityAction,
}

// RequiredCapability returns the capability an action requires and whether
// the action is part of the protocol at all.
func RequiredCapability(action string) (Capability, bool) {
	need, ok := actionCapability[action]
	return need, ok
}

// Actions returns the protocol action names in a stable order.
func Actions() []string {
	return []string{
		ActionGetInfo,
		ActionInitialize,
		ActionStart,
		ActionStop,
		ActionGetStatus,
		ActionGetHealth,
		ActionDetectTriggers,
		ActionGetTriggerConfig,
		ActionExecuteAction,
		ActionGetActionConfig,
	}
}

// RequestEnvelope is the single-line JSON request written to a plugin's stdin.
type RequestEnvelope struct {
	Action  string         `json:"action"`
	Config  Config         `json:"config,omitempty"`
	Request *ActionRequest `json:"action_request,omitempty"`
}

// ResponseEnvelope is the single-line JSON response read from a plugin's
// stdout. Exactly one of Data and Error is set.
type ResponseEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// PluginInfo describes a plugin. Type declares the capability the plugin
// provides and must be "trigger" or "action".
type PluginInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version"`
	Author      string    `json:"author,omitempty"`
	License     string    `json:"license,omitempty"`
	Type        string    `json:"type"`
	Tags        []string  `json:"tags,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusReport is the payload returned by get_status and the lifecycle
// actions.
type StatusReport struct {
	State  State   `json:"state"`
	Uptime float64 `json:"uptime"`
}

// TriggerEvent is one detected condition reported by a trigger plugin.
type TriggerEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
	Severity  string                 `json:"severity,omitempty"`
}

// ActionRequest asks an action plugin to execute one action. Timeout is in
// seconds; zero means the plugin's default.
type ActionRequest struct {
	ID         string                 `json:"id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Timeout    float64                `json:"timeout,omitempty"`
}

// ResultStatus is the outcome of an executed action.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

// ActionResult reports the outcome of one execute_action call. ID always
// echoes the request id unchanged. Duration is in seconds.
type ActionResult struct {
	ID          string                 `json:"id"`
	Status      ResultStatus           `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
	Duration    float64                `json:"duration"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
