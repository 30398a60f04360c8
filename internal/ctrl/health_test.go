package ctrl_test

import (
	"context"
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

func TestHealth_RecordsReport(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetHealth: mustResponse(t, pluginapi.HealthReport{
				Status:    pluginapi.HealthHealthy,
				LastCheck: time.Now(),
				Uptime:    12.5,
			}),
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)
	watcher := runningTrigger("watcher")

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().List(gomock.Any()).Return([]*entity.Plugin{watcher}, nil)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("watcher").Return(client, nil)

	cfg := &config.Config{Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	health := ctrl.NewHealthMonitorController(cfg, mockPlugins, mockManager, &logger)
	health.Execute(context.TODO())

	report := watcher.Health()
	if report == nil {
		t.Fatal("health report was not recorded")
	}
	if report.Status != pluginapi.HealthHealthy {
		t.Errorf("health status = %q, want %q", report.Status, pluginapi.HealthHealthy)
	}
	if watcher.State() != pluginapi.StateRunning {
		t.Errorf("plugin state = %q, want still %q", watcher.State(), pluginapi.StateRunning)
	}
}

func TestHealth_RecordsDegradedReport(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetHealth: mustResponse(t, pluginapi.HealthReport{
				Status:  pluginapi.HealthDegraded,
				Message: "2 of 4 paths below threshold",
			}),
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)
	watcher := runningTrigger("watcher")

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().List(gomock.Any()).Return([]*entity.Plugin{watcher}, nil)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("watcher").Return(client, nil)

	cfg := &config.Config{Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	health := ctrl.NewHealthMonitorController(cfg, mockPlugins, mockManager, &logger)
	health.Execute(context.TODO())

	report := watcher.Health()
	if report == nil || report.Status != pluginapi.HealthDegraded {
		t.Fatalf("health report = %+v, want degraded", report)
	}
	if watcher.State() != pluginapi.StateRunning {
		t.Errorf("plugin state = %q, degraded must not change it", watcher.State())
	}
}

func TestHealth_MarksFailedWhenUnreachable(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		errs: map[string]error{
			pluginapi.ActionGetHealth: &plugin.ProcessExitedError{Action: pluginapi.ActionGetHealth, ExitCode: 1},
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)
	watcher := runningTrigger("watcher")

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().List(gomock.Any()).Return([]*entity.Plugin{watcher}, nil)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("watcher").Return(client, nil)

	cfg := &config.Config{Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	health := ctrl.NewHealthMonitorController(cfg, mockPlugins, mockManager, &logger)
	health.Execute(context.TODO())

	if watcher.State() != pluginapi.StateFailed {
		t.Errorf("plugin state = %q, want %q", watcher.State(), pluginapi.StateFailed)
	}
	if watcher.Health() != nil {
		t.Error("no report should be recorded for an unreachable plugin")
	}
}

func TestHealth_RecordsProbeError(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	ft := &fakeTransport{
		responses: map[string]*pluginapi.ResponseEnvelope{
			pluginapi.ActionGetHealth: {
				Success: false,
				Error:   &pluginapi.ErrorInfo{Kind: pluginapi.InternalError, Message: "meminfo unreadable"},
			},
		},
	}
	client := plugin.NewClient("watcher", pluginapi.CapabilityTrigger, ft)
	watcher := runningTrigger("watcher")

	mockPlugins := mock.NewMockPluginRepository(mockCtrl)
	mockPlugins.EXPECT().List(gomock.Any()).Return([]*entity.Plugin{watcher}, nil)

	mockManager := mock.NewMockPluginManager(mockCtrl)
	mockManager.EXPECT().Get("watcher").Return(client, nil)

	cfg := &config.Config{Timeouts: testTimeouts()}
	logger := zerolog.Nop()
	health := ctrl.NewHealthMonitorController(cfg, mockPlugins, mockManager, &logger)
	health.Execute(context.TODO())

	if watcher.State() != pluginapi.StateRunning {
		t.Errorf("plugin state = %q, want still %q", watcher.State(), pluginapi.StateRunning)
	}
	if watcher.ErrorCount() != 1 {
		t.Errorf("error count = %d, want 1", watcher.ErrorCount())
	}
}
