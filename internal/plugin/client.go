package plugin

import (
	"context"
	"encoding/json"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// Client wraps a Transport with typed operations for every protocol
// action. All methods translate a failed response envelope into the
// error carried inside it.
type Client struct {
	id        string
	kind      pluginapi.Capability
	transport Transport
}

func NewClient(id string, kind pluginapi.Capability, transport Transport) *Client {
	return &Client{
		id:        id,
		kind:      kind,
		transport: transport,
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) Kind() pluginapi.Capability {
	return c.kind
}

// Call sends a raw envelope and returns the raw response. Commands use
// it to relay arbitrary actions without interpreting the payload.
func (c *Client) Call(ctx context.Context, req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
	return c.transport.Call(ctx, req)
}

func (c *Client) Close(ctx context.Context) error {
	return c.transport.Close(ctx)
}

func (c *Client) GetInfo(ctx context.Context) (*pluginapi.PluginInfo, error) {
	var info pluginapi.PluginInfo
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionGetInfo}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Initialize(ctx context.Context, config pluginapi.Config) (*pluginapi.StatusReport, error) {
	var status pluginapi.StatusReport
	req := &pluginapi.RequestEnvelope{Action: pluginapi.ActionInitialize, Config: config}
	if err := c.call(ctx, req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Start(ctx context.Context) (*pluginapi.StatusReport, error) {
	var status pluginapi.StatusReport
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionStart}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Stop(ctx context.Context) (*pluginapi.StatusReport, error) {
	var status pluginapi.StatusReport
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionStop}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetStatus(ctx context.Context) (*pluginapi.StatusReport, error) {
	var status pluginapi.StatusReport
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionGetStatus}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetHealth(ctx context.Context) (*pluginapi.HealthReport, error) {
	var health pluginapi.HealthReport
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionGetHealth}, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) DetectTriggers(ctx context.Context) ([]pluginapi.TriggerEvent, error) {
	var events []pluginapi.TriggerEvent
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionDetectTriggers}, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetTriggerConfig(ctx context.Context) (*pluginapi.ConfigSchema, error) {
	var schema pluginapi.ConfigSchema
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionGetTriggerConfig}, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (c *Client) GetActionConfig(ctx context.Context) (*pluginapi.ConfigSchema, error) {
	var schema pluginapi.ConfigSchema
	if err := c.call(ctx, &pluginapi.RequestEnvelope{Action: pluginapi.ActionGetActionConfig}, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (c *Client) ExecuteAction(ctx context.Context, request *pluginapi.ActionRequest) (*pluginapi.ActionResult, error) {
	var result pluginapi.ActionResult
	req := &pluginapi.RequestEnvelope{Action: pluginapi.ActionExecuteAction, Request: request}
	if err := c.call(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) call(ctx context.Context, req *pluginapi.RequestEnvelope, out interface{}) error {
	resp, err := c.transport.Call(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return resp.Error.Err()
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return pluginapi.Errorf(pluginapi.ProtocolError, "decode %s payload: %v", req.Action, err)
	}
	return nil
}
