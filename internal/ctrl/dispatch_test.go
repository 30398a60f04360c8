package ctrl_test

import (
	"context"
	"encoding/json"
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
	"github.com/Stavily/06-Plugins/internal/queue"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

func echoHandler(t *testing.T) func(req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
	t.Helper()
	return func(req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
		result := pluginapi.ActionResult{
			ID:       req.Request.ID,
			Status:   pluginapi.ResultCompleted,
			Duration: 0.2,
		}
		return mustResponse(t, result), nil
	}
}

func mailerEntity() *entity.Plugin {
	p := entity.NewPlugin("mailer", pluginapi.CapabilityAction)
	p.SetState(pluginapi.StateRunning)
	p.SetSchema(pluginapi.ConfigSchema{
		Parameters: map[string]pluginapi.ParamSpec{
			"to":      {Type: "string", Required: true},
			"subject": {Type: "string", Default: "stavily alert"},
		},
	})
	return p
}

func mailerRoutes() []config.Route {
	return []config.Route{
		{Match: "disk.*", Plugin: "mailer", Parameters: map[string]interface{}{"to": "ops@example.com"}},
	}
}

func diskEvent() *pluginapi.TriggerEvent {
	return &pluginapi.TriggerEvent{
		ID:        "evt-1",
		Type:      "disk.space.warning",
		Source:    "disk-watch",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"path": "/var", "usage_percent": 91.5},
	}
}

func TestDispatch_RoutesEventToAction(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{handler: echoHandler(t)}
	client := plugin.NewClient("mailer", pluginapi.CapabilityAction, ft)
	mailer := mailerEntity()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("mailer").Return(client, nil)

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Find(gomock.Any(), entity.PluginId("mailer")).Return(mailer, nil)

	mockQueue := mock.NewMockEventQueue(mockCtrl)

	cfg := &config.Config{Routes: mailerRoutes(), Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, mockQueue, &logger)
	dispatch.Execute(context.TODO(), diskEvent())

	req := ft.requestFor(pluginapi.ActionExecuteAction)
	if req == nil {
		t.Fatal("execute_action was never sent")
	}
	if req.Request.ID == "" {
		t.Error("action request has no id")
	}
	if got := req.Request.Parameters["to"]; got != "ops@example.com" {
		t.Errorf("parameter to = %v, want route value", got)
	}
	if got := req.Request.Parameters["path"]; got != "/var" {
		t.Errorf("parameter path = %v, want event data", got)
	}
	if got := req.Request.Parameters["subject"]; got != "stavily alert" {
		t.Errorf("parameter subject = %v, want schema default", got)
	}
	if mailer.ErrorCount() != 0 {
		t.Errorf("error count = %d, want 0", mailer.ErrorCount())
	}
}

func TestDispatch_NoMatchingRoute(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockQueue := mock.NewMockEventQueue(mockCtrl)

	cfg := &config.Config{Routes: mailerRoutes(), Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, mockQueue, &logger)

	event := diskEvent()
	event.Type = "memory.usage.warning"
	dispatch.Execute(context.TODO(), event)
}

func TestDispatch_RejectsInvalidParameters(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{handler: echoHandler(t)}
	client := plugin.NewClient("mailer", pluginapi.CapabilityAction, ft)
	mailer := mailerEntity()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("mailer").Return(client, nil)

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Find(gomock.Any(), entity.PluginId("mailer")).Return(mailer, nil)

	mockQueue := mock.NewMockEventQueue(mockCtrl)

	routes := []config.Route{{Match: "disk.*", Plugin: "mailer"}}
	cfg := &config.Config{Routes: routes, Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, mockQueue, &logger)
	dispatch.Execute(context.TODO(), diskEvent())

	if len(ft.requests) != 0 {
		t.Errorf("requests sent = %d, want validation to stop the call", len(ft.requests))
	}
	if mailer.ErrorCount() != 1 {
		t.Errorf("error count = %d, want 1", mailer.ErrorCount())
	}
	if !strings.Contains(mailer.LastError(), "to") {
		t.Errorf("last error = %q, want missing parameter", mailer.LastError())
	}
}

func TestDispatch_RecordsFailedResult(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		handler: func(req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
			result := pluginapi.ActionResult{
				ID:     req.Request.ID,
				Status: pluginapi.ResultFailed,
				Error:  "smtp connection refused",
			}
			return mustResponse(t, result), nil
		},
	}
	client := plugin.NewClient("mailer", pluginapi.CapabilityAction, ft)
	mailer := mailerEntity()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("mailer").Return(client, nil)

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Find(gomock.Any(), entity.PluginId("mailer")).Return(mailer, nil)

	mockQueue := mock.NewMockEventQueue(mockCtrl)

	cfg := &config.Config{Routes: mailerRoutes(), Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, mockQueue, &logger)
	dispatch.Execute(context.TODO(), diskEvent())

	if mailer.State() != pluginapi.StateRunning {
		t.Errorf("plugin state = %q, want still %q", mailer.State(), pluginapi.StateRunning)
	}
	if mailer.LastError() != "smtp connection refused" {
		t.Errorf("last error = %q, want the action's error", mailer.LastError())
	}
}

func TestDispatch_MarksFailedOnProcessExit(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		errs: map[string]error{
			pluginapi.ActionExecuteAction: &plugin.ProcessExitedError{Action: pluginapi.ActionExecuteAction, ExitCode: 137},
		},
	}
	client := plugin.NewClient("mailer", pluginapi.CapabilityAction, ft)
	mailer := mailerEntity()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("mailer").Return(client, nil)

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Find(gomock.Any(), entity.PluginId("mailer")).Return(mailer, nil)

	mockQueue := mock.NewMockEventQueue(mockCtrl)

	cfg := &config.Config{Routes: mailerRoutes(), Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, mockQueue, &logger)
	dispatch.Execute(context.TODO(), diskEvent())

	if mailer.State() != pluginapi.StateFailed {
		t.Errorf("plugin state = %q, want %q", mailer.State(), pluginapi.StateFailed)
	}
}

func TestDispatch_RunDrainsQueue(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{handler: echoHandler(t)}
	client := plugin.NewClient("mailer", pluginapi.CapabilityAction, ft)
	mailer := mailerEntity()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("mailer").Return(client, nil).Times(2)

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Find(gomock.Any(), entity.PluginId("mailer")).Return(mailer, nil).Times(2)

	events := queue.New[*pluginapi.TriggerEvent](8)
	first := diskEvent()
	second := diskEvent()
	second.ID = "evt-2"
	events.Enqueue(first)
	events.Enqueue(second)
	events.Close()

	cfg := &config.Config{Routes: mailerRoutes(), Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, events, &logger)
	dispatch.Run(context.TODO())

	if len(ft.requests) != 2 {
		t.Errorf("requests sent = %d, want one per queued event", len(ft.requests))
	}
}

func TestDispatch_WarnsOnMismatchedResultId(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	result := pluginapi.ActionResult{ID: "not-the-request", Status: pluginapi.ResultCompleted}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionExecuteAction: {Success: true, Data: data},
		},
	}
	client := plugin.NewClient("mailer", pluginapi.CapabilityAction, ft)
	mailer := mailerEntity()

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("mailer").Return(client, nil)

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().Find(gomock.Any(), entity.PluginId("mailer")).Return(mailer, nil)

	mockQueue := mock.NewMockEventQueue(mockCtrl)

	cfg := &config.Config{Routes: mailerRoutes(), Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	dispatch := ctrl.NewDispatchController(cfg, mockPlugins, mockManager, mockQueue, &logger)
	dispatch.Execute(context.TODO(), diskEvent())

	if mailer.ErrorCount() != 0 {
		t.Errorf("error count = %d, want a warning only", mailer.ErrorCount())
	}
}
