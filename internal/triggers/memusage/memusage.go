package memusage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

const (
	pluginID      = "memory-monitor"
	pluginVersion = "1.0.0"
)

// Config tunes the monitor. Thresholds are percentages of total memory
// and total swap.
type Config struct {
	MemoryThreshold float64 `mapstructure:"memory_threshold"`
	SwapThreshold   float64 `mapstructure:"swap_threshold"`
	Interval        int     `mapstructure:"interval"`
	AlertCooldown   int     `mapstructure:"alert_cooldown"`
}

func defaultConfig() Config {
	return Config{
		MemoryThreshold: 85,
		SwapThreshold:   90,
		Interval:        60,
		AlertCooldown:   300,
	}
}

type memStats struct {
	MemoryPercent   float64 `json:"memory_percent"`
	TotalMemory     uint64  `json:"total_memory"`
	AvailableMemory uint64  `json:"available_memory"`
	UsedMemory      uint64  `json:"used_memory"`
	SwapPercent     float64 `json:"swap_percent"`
	TotalSwap       uint64  `json:"total_swap"`
	UsedSwap        uint64  `json:"used_swap"`
	FreeSwap        uint64  `json:"free_swap"`
}

// Plugin watches RAM and swap usage and emits memory.high and swap.high
// events when usage crosses the configured thresholds.
type Plugin struct {
	mu        sync.Mutex
	cfg       Config
	lastAlert map[string]time.Time
	read      func() (memStats, error)
	now       func() time.Time
}

func New() *Plugin {
	return &Plugin{
		cfg:       defaultConfig(),
		lastAlert: make(map[string]time.Time),
		read:      readMeminfo,
		now:       time.Now,
	}
}

func (p *Plugin) Info() pluginapi.PluginInfo {
	now := time.Now()
	return pluginapi.PluginInfo{
		ID:          pluginID,
		Name:        "Memory Monitor",
		Description: "Monitors RAM and swap usage with configurable thresholds",
		Version:     pluginVersion,
		Author:      "Stavily Team",
		License:     "MIT",
		Type:        string(pluginapi.CapabilityTrigger),
		Tags:        []string{"system", "monitoring", "memory", "ram", "swap"},
		Categories:  []string{"system-monitoring"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Plugin) Initialize(ctx context.Context, config pluginapi.Config) error {
	cfg := defaultConfig()
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return pluginapi.Errorf(pluginapi.ValidationError, "invalid configuration: %v", err)
	}

	if cfg.MemoryThreshold < 0 || cfg.MemoryThreshold > 100 {
		return pluginapi.NewError(pluginapi.ValidationError, "memory threshold must be between 0 and 100")
	}
	if cfg.SwapThreshold < 0 || cfg.SwapThreshold > 100 {
		return pluginapi.NewError(pluginapi.ValidationError, "swap threshold must be between 0 and 100")
	}
	if cfg.Interval < 1 {
		return pluginapi.NewError(pluginapi.ValidationError, "interval must be at least 1 second")
	}

	p.mu.Lock()
	p.cfg = cfg
	p.lastAlert = make(map[string]time.Time)
	p.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Float64("memory_threshold", cfg.MemoryThreshold).
		Float64("swap_threshold", cfg.SwapThreshold).
		Int("interval", cfg.Interval).
		Msg("memory monitor initialized")
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("memory monitor started")
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("memory monitor stopped")
	return nil
}

func (p *Plugin) DetectTriggers(ctx context.Context) ([]pluginapi.TriggerEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats, err := p.read()
	if err != nil {
		return nil, pluginapi.Errorf(pluginapi.InternalError, "memory stats unavailable: %v", err)
	}

	now := p.now()
	var events []pluginapi.TriggerEvent
	if stats.MemoryPercent > p.cfg.MemoryThreshold && p.shouldAlert("memory", now) {
		zerolog.Ctx(ctx).Warn().
			Float64("usage", stats.MemoryPercent).
			Float64("threshold", p.cfg.MemoryThreshold).
			Msg("memory usage above threshold")
		events = append(events, p.newEvent(stats, "memory", now))
	}
	if stats.SwapPercent > p.cfg.SwapThreshold && p.shouldAlert("swap", now) {
		zerolog.Ctx(ctx).Warn().
			Float64("usage", stats.SwapPercent).
			Float64("threshold", p.cfg.SwapThreshold).
			Msg("swap usage above threshold")
		events = append(events, p.newEvent(stats, "swap", now))
	}
	return events, nil
}

func (p *Plugin) shouldAlert(alertType string, now time.Time) bool {
	cooldown := time.Duration(p.cfg.AlertCooldown) * time.Second
	if last, ok := p.lastAlert[alertType]; ok && now.Sub(last) < cooldown {
		return false
	}
	p.lastAlert[alertType] = now
	return true
}

func (p *Plugin) newEvent(stats memStats, alertType string, now time.Time) pluginapi.TriggerEvent {
	var eventType, severity string
	var usage, threshold float64
	if alertType == "memory" {
		eventType = "memory.high"
		usage = stats.MemoryPercent
		threshold = p.cfg.MemoryThreshold
		switch {
		case usage > 95:
			severity = "critical"
		case usage > 90:
			severity = "high"
		default:
			severity = "medium"
		}
	} else {
		eventType = "swap.high"
		usage = stats.SwapPercent
		threshold = p.cfg.SwapThreshold
		severity = "high"
		if usage > 95 {
			severity = "critical"
		}
	}

	hostname, _ := os.Hostname()
	return pluginapi.TriggerEvent{
		ID:        fmt.Sprintf("memory-%s-%d", alertType, now.Unix()),
		Type:      eventType,
		Source:    pluginID,
		Timestamp: now,
		Data: map[string]interface{}{
			"alert_type":    alertType,
			"usage_percent": usage,
			"threshold":     threshold,
			"memory_info":   stats,
			"system_info": map[string]interface{}{
				"hostname":     hostname,
				"platform":     runtime.GOOS,
				"architecture": runtime.GOARCH,
			},
		},
		Metadata: map[string]interface{}{
			"plugin_id":      pluginID,
			"plugin_version": pluginVersion,
			"hostname":       hostname,
		},
		Tags:     []string{"system", "memory", alertType, "alert"},
		Severity: severity,
	}
}

func (p *Plugin) TriggerConfig() pluginapi.ConfigSchema {
	return pluginapi.ConfigSchema{
		Parameters: map[string]pluginapi.ParamSpec{
			"memory_threshold": {
				Type:        "number",
				Description: "Memory usage threshold percentage (0-100)",
				Default:     85.0,
				Minimum:     bound(0),
				Maximum:     bound(100),
			},
			"swap_threshold": {
				Type:        "number",
				Description: "Swap usage threshold percentage (0-100)",
				Default:     90.0,
				Minimum:     bound(0),
				Maximum:     bound(100),
			},
			"interval": {
				Type:        "integer",
				Description: "Monitoring interval in seconds",
				Default:     60,
				Minimum:     bound(1),
				Examples:    []interface{}{30, 60, 300},
			},
			"alert_cooldown": {
				Type:        "integer",
				Description: "Cooldown period between alerts of the same type (seconds)",
				Default:     300,
				Minimum:     bound(60),
			},
		},
		Examples: []map[string]interface{}{
			{"memory_threshold": 85.0, "swap_threshold": 90.0, "interval": 60},
			{"memory_threshold": 95.0, "interval": 300, "alert_cooldown": 600},
		},
		Description: "Memory monitoring configuration",
	}
}

// HealthChecks reports whether memory statistics are readable.
func (p *Plugin) HealthChecks(ctx context.Context) map[string]pluginapi.CheckResult {
	p.mu.Lock()
	read := p.read
	p.mu.Unlock()

	now := time.Now()
	stats, err := read()
	if err != nil {
		return map[string]pluginapi.CheckResult{
			"meminfo": {Status: pluginapi.HealthUnhealthy, Message: err.Error(), ObservedAt: now},
		}
	}
	return map[string]pluginapi.CheckResult{
		"meminfo": {
			Status:     pluginapi.HealthHealthy,
			Message:    fmt.Sprintf("memory %.1f%%, swap %.1f%%", stats.MemoryPercent, stats.SwapPercent),
			ObservedAt: now,
		},
	}
}

// readMeminfo derives usage from /proc/meminfo. Used memory counts
// everything not reclaimable, matching what free(1) reports as
// available.
func readMeminfo() (memStats, error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return memStats{}, fmt.Errorf("read meminfo: %w", err)
	}

	fields := make(map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		kb, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}
		fields[name] = kb * 1024
	}

	total := fields["MemTotal"]
	if total == 0 {
		return memStats{}, errors.New("meminfo reports no memory")
	}
	avail := fields["MemAvailable"]
	swapTotal := fields["SwapTotal"]
	swapFree := fields["SwapFree"]

	stats := memStats{
		MemoryPercent:   round2(float64(total-avail) / float64(total) * 100),
		TotalMemory:     total,
		AvailableMemory: avail,
		UsedMemory:      total - avail,
		TotalSwap:       swapTotal,
		UsedSwap:        swapTotal - swapFree,
		FreeSwap:        swapFree,
	}
	if swapTotal > 0 {
		stats.SwapPercent = round2(float64(swapTotal-swapFree) / float64(swapTotal) * 100)
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func bound(v float64) *float64 {
	return &v
}
