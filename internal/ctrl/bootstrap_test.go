package ctrl_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gomock "go.uber.org/mock/gomock"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/ctrl"
	mock "github.com/Stavily/06-Plugins/internal/ctrl/mock"
	"github.com/Stavily/06-Plugins/internal/entity"
	plugin "github.com/Stavily/06-Plugins/internal/plugin"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// fakeTransport answers protocol calls from canned responses, or from a
// handler when one is set. Every request is recorded.
type fakeTransport struct {
	handler   func(req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error)
	responses map[string]*pluginapi.ResponseEnvelope
	errs      map[string]error
	requests  []*pluginapi.RequestEnvelope
}

func (f *fakeTransport) Call(_ context.Context, req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
	f.requests = append(f.requests, req)
	if f.handler != nil {
		return f.handler(req)
	}
	if err, ok := f.errs[req.Action]; ok {
		return nil, err
	}
	if resp, ok := f.responses[req.Action]; ok {
		return resp, nil
	}
	return &pluginapi.ResponseEnvelope{Success: true}, nil
}

func (f *fakeTransport) Close(context.Context) error { return nil }

func (f *fakeTransport) requestFor(action string) *pluginapi.RequestEnvelope {
	for _, req := range f.requests {
		if req.Action == action {
			return req
		}
	}
	return nil
}

func mustResponse(t *testing.T, v interface{}) *pluginapi.ResponseEnvelope {
	t.Helper()
	resp, err := pluginapi.SuccessResponse(v)
	if err != nil {
		t.Fatalf("build response: %v", err)
	}
	return resp
}

func testTimeouts() config.Timeouts {
	return config.Timeouts{
		Lifecycle: time.Second,
		Detect:    time.Second,
		Execute:   time.Second,
	}
}

func triggerInfo(id string) pluginapi.PluginInfo {
	return pluginapi.PluginInfo{
		ID:      id,
		Name:    id,
		Version: "1.0.0",
		Type:    "trigger",
	}
}

func TestBootstrap_TriggerPlugin(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetInfo: mustResponse(t, triggerInfo("disk-watch")),
			pluginapi.ActionGetTriggerConfig: mustResponse(t, pluginapi.ConfigSchema{
				Parameters: map[string]pluginapi.ParamSpec{
					"check_interval": {Type: "integer", Default: 30.0},
					"path":           {Type: "string", Required: true},
				},
			}),
			pluginapi.ActionInitialize: mustResponse(t, pluginapi.StatusReport{State: pluginapi.StateInitialized}),
			pluginapi.ActionStart:      mustResponse(t, pluginapi.StatusReport{State: pluginapi.StateRunning}),
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().List().Return([]*plugin.Client{client})

	var saved *entity.Plugin
	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Save(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *entity.Plugin) {
		saved = p
	})

	cfg := &config.Config{
		Plugins: map[string]pluginapi.PluginDefinition{
			"watcher": {
				Type:   "builtin",
				Kind:   "trigger",
				Config: pluginapi.Config{"name": "disk-watch", "path": "/var"},
			},
		},
		Timeouts: testTimeouts(),
	}

	logger := zerolog.Nop()
	bootstrap := ctrl.NewBootstrapController(mockManager, cfg, mockPlugins, &logger)
	bootstrap.Execute(context.TODO())

	if saved == nil {
		t.Fatal("bootstrap did not save the plugin entity")
	}
	if saved.State() != pluginapi.StateRunning {
		t.Errorf("plugin state = %q, want %q", saved.State(), pluginapi.StateRunning)
	}
	if saved.Schema() == nil {
		t.Error("bootstrap did not record the plugin schema")
	}
	if saved.Info() == nil || saved.Info().ID != "disk-watch" {
		t.Errorf("plugin info = %+v, want id disk-watch", saved.Info())
	}

	initReq := ft.requestFor(pluginapi.ActionInitialize)
	if initReq == nil {
		t.Fatal("initialize was never sent")
	}
	if got := initReq.Config["check_interval"]; got != 30.0 {
		t.Errorf("initialize config check_interval = %v, want schema default 30", got)
	}
	if got := initReq.Config["path"]; got != "/var" {
		t.Errorf("initialize config path = %v, want /var", got)
	}
}

func TestBootstrap_KindMismatch(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	info := triggerInfo("mailer")
	info.Type = "action"
	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetInfo: mustResponse(t, info),
		},
	}
	client := plugin.NewClient("mailer", pluginapi.CapabilityTrigger, ft)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().List().Return([]*plugin.Client{client})

	var saved *entity.Plugin
	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Save(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *entity.Plugin) {
		saved = p
	})

	cfg := &config.Config{
		Plugins:  map[string]pluginapi.PluginDefinition{"mailer": {Type: "builtin", Kind: "trigger"}},
		Timeouts: testTimeouts(),
	}

	logger := zerolog.Nop()
	bootstrap := ctrl.NewBootstrapController(mockManager, cfg, mockPlugins, &logger)
	bootstrap.Execute(context.TODO())

	if saved.State() != pluginapi.StateFailed {
		t.Errorf("plugin state = %q, want %q", saved.State(), pluginapi.StateFailed)
	}
	if !strings.Contains(saved.LastError(), "declares type") {
		t.Errorf("last error = %q, want kind mismatch", saved.LastError())
	}
	if len(ft.requests) != 1 {
		t.Errorf("requests sent = %d, want get_info only", len(ft.requests))
	}
}

func TestBootstrap_ConfigValidationFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetInfo: mustResponse(t, triggerInfo("disk-watch")),
			pluginapi.ActionGetTriggerConfig: mustResponse(t, pluginapi.ConfigSchema{
				Parameters: map[string]pluginapi.ParamSpec{
					"path": {Type: "string", Required: true},
				},
			}),
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().List().Return([]*plugin.Client{client})

	var saved *entity.Plugin
	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Save(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *entity.Plugin) {
		saved = p
	})

	cfg := &config.Config{
		Plugins:  map[string]pluginapi.PluginDefinition{"watcher": {Type: "builtin", Kind: "trigger"}},
		Timeouts: testTimeouts(),
	}

	logger := zerolog.Nop()
	bootstrap := ctrl.NewBootstrapController(mockManager, cfg, mockPlugins, &logger)
	bootstrap.Execute(context.TODO())

	if saved.State() != pluginapi.StateFailed {
		t.Errorf("plugin state = %q, want %q", saved.State(), pluginapi.StateFailed)
	}
	if ft.requestFor(pluginapi.ActionInitialize) != nil {
		t.Error("initialize was sent despite invalid config")
	}
}

func TestBootstrap_InitializeRejected(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetInfo:          mustResponse(t, triggerInfo("disk-watch")),
			pluginapi.ActionGetTriggerConfig: mustResponse(t, pluginapi.ConfigSchema{}),
			pluginapi.ActionInitialize: {
				Success: false,
				Error:   &pluginapi.ErrorInfo{Kind: pluginapi.ValidationError, Message: "bad config"},
			},
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().List().Return([]*plugin.Client{client})

	var saved *entity.Plugin
	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Save(gomock.Any(), gomock.Any()).Do(func(_ context.Context, p *entity.Plugin) {
		saved = p
	})

	cfg := &config.Config{
		Plugins:  map[string]pluginapi.PluginDefinition{"watcher": {Type: "builtin", Kind: "trigger"}},
		Timeouts: testTimeouts(),
	}

	logger := zerolog.Nop()
	bootstrap := ctrl.NewBootstrapController(mockManager, cfg, mockPlugins, &logger)
	bootstrap.Execute(context.TODO())

	if saved.State() != pluginapi.StateFailed {
		t.Errorf("plugin state = %q, want %q", saved.State(), pluginapi.StateFailed)
	}
	if !strings.Contains(saved.LastError(), "bad config") {
		t.Errorf("last error = %q, want the plugin's rejection", saved.LastError())
	}
	if ft.requestFor(pluginapi.ActionStart) != nil {
		t.Error("start was sent after a failed initialize")
	}
}
