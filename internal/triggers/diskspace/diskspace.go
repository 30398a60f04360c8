package diskspace

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

const (
	pluginID      = "disk-space-monitor"
	pluginVersion = "1.0.0"
)

// Config tunes the monitor. Thresholds are percentages of filesystem
// capacity.
type Config struct {
	Threshold         float64  `mapstructure:"threshold"`
	CriticalThreshold float64  `mapstructure:"critical_threshold"`
	Interval          int      `mapstructure:"interval"`
	MonitoredPaths    []string `mapstructure:"monitored_paths"`
	ExcludeTypes      []string `mapstructure:"exclude_types"`
	AlertCooldown     int      `mapstructure:"alert_cooldown"`
}

func defaultConfig() Config {
	return Config{
		Threshold:         85,
		CriticalThreshold: 95,
		Interval:          300,
		MonitoredPaths:    []string{"/", "/var", "/tmp", "/home"},
		ExcludeTypes:      []string{"tmpfs", "devtmpfs", "proc", "sysfs"},
		AlertCooldown:     600,
	}
}

type filesystem struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	Percent    float64 `json:"percent"`
	TotalGB    float64 `json:"total_gb"`
	UsedGB     float64 `json:"used_gb"`
	FreeGB     float64 `json:"free_gb"`
}

// Plugin watches mounted filesystems and emits disk.space events when
// usage crosses the configured thresholds. Repeat alerts for the same
// mount are suppressed for the cooldown period.
type Plugin struct {
	mu        sync.Mutex
	cfg       Config
	lastAlert map[string]time.Time
	scan      func(cfg Config) ([]filesystem, error)
	now       func() time.Time
}

func New() *Plugin {
	return &Plugin{
		cfg:       defaultConfig(),
		lastAlert: make(map[string]time.Time),
		scan:      scanFilesystems,
		now:       time.Now,
	}
}

func (p *Plugin) Info() pluginapi.PluginInfo {
	now := time.Now()
	return pluginapi.PluginInfo{
		ID:          pluginID,
		Name:        "Disk Space Monitor",
		Description: "Monitors disk usage across filesystems with configurable thresholds",
		Version:     pluginVersion,
		Author:      "Stavily Team",
		License:     "MIT",
		Type:        string(pluginapi.CapabilityTrigger),
		Tags:        []string{"system", "monitoring", "disk", "storage", "filesystem"},
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

	if cfg.Threshold < 0 || cfg.Threshold > 100 {
		return pluginapi.NewError(pluginapi.ValidationError, "threshold must be between 0 and 100")
	}
	if cfg.CriticalThreshold < 0 || cfg.CriticalThreshold > 100 {
		return pluginapi.NewError(pluginapi.ValidationError, "critical threshold must be between 0 and 100")
	}
	if cfg.Threshold >= cfg.CriticalThreshold {
		return pluginapi.NewError(pluginapi.ValidationError, "critical threshold must be higher than regular threshold")
	}
	if cfg.Interval < 1 {
		return pluginapi.NewError(pluginapi.ValidationError, "interval must be at least 1 second")
	}

	p.mu.Lock()
	p.cfg = cfg
	p.lastAlert = make(map[string]time.Time)
	p.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Float64("threshold", cfg.Threshold).
		Float64("critical_threshold", cfg.CriticalThreshold).
		Int("interval", cfg.Interval).
		Msg("disk space monitor initialized")
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("disk space monitor started")
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("disk space monitor stopped")
	return nil
}

func (p *Plugin) DetectTriggers(ctx context.Context) ([]pluginapi.TriggerEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	filesystems, err := p.scan(p.cfg)
	if err != nil {
		return nil, pluginapi.Errorf(pluginapi.InternalError, "disk scan failed: %v", err)
	}

	now := p.now()
	cooldown := time.Duration(p.cfg.AlertCooldown) * time.Second

	var events []pluginapi.TriggerEvent
	for _, fs := range filesystems {
		level, threshold := p.classify(fs.Percent)
		if level == "" {
			continue
		}

		key := fs.Mountpoint + "_" + level
		if last, ok := p.lastAlert[key]; ok && now.Sub(last) < cooldown {
			continue
		}
		p.lastAlert[key] = now

		zerolog.Ctx(ctx).Warn().
			Str("mountpoint", fs.Mountpoint).
			Float64("usage", fs.Percent).
			Float64("threshold", threshold).
			Msg("disk usage above threshold")
		events = append(events, p.newEvent(fs, level, threshold, now))
	}
	return events, nil
}

func (p *Plugin) classify(percent float64) (string, float64) {
	switch {
	case percent >= p.cfg.CriticalThreshold:
		return "critical", p.cfg.CriticalThreshold
	case percent >= p.cfg.Threshold:
		return "warning", p.cfg.Threshold
	}
	return "", 0
}

func (p *Plugin) newEvent(fs filesystem, level string, threshold float64, now time.Time) pluginapi.TriggerEvent {
	hostname, _ := os.Hostname()
	severity := "high"
	if level == "critical" {
		severity = "critical"
	}

	return pluginapi.TriggerEvent{
		ID:        fmt.Sprintf("disk-%s-%s-%d", level, strings.ReplaceAll(fs.Mountpoint, "/", "_"), now.Unix()),
		Type:      "disk.space." + level,
		Source:    pluginID,
		Timestamp: now,
		Data: map[string]interface{}{
			"alert_level":   level,
			"filesystem":    fs,
			"threshold":     threshold,
			"usage_percent": fs.Percent,
			"free_space_gb": fs.FreeGB,
			"system_info": map[string]interface{}{
				"hostname": hostname,
				"platform": runtime.GOOS,
			},
		},
		Metadata: map[string]interface{}{
			"plugin_id":      pluginID,
			"plugin_version": pluginVersion,
			"hostname":       hostname,
		},
		Tags:     []string{"system", "disk", "storage", "filesystem", level},
		Severity: severity,
	}
}

func (p *Plugin) TriggerConfig() pluginapi.ConfigSchema {
	return pluginapi.ConfigSchema{
		Parameters: map[string]pluginapi.ParamSpec{
			"threshold": {
				Type:        "number",
				Description: "Disk usage threshold percentage (0-100)",
				Default:     85.0,
				Minimum:     bound(0),
				Maximum:     bound(100),
			},
			"critical_threshold": {
				Type:        "number",
				Description: "Critical disk usage threshold percentage (0-100)",
				Default:     95.0,
				Minimum:     bound(0),
				Maximum:     bound(100),
			},
			"interval": {
				Type:        "integer",
				Description: "Monitoring interval in seconds",
				Default:     300,
				Minimum:     bound(1),
				Examples:    []interface{}{60, 300, 600},
			},
			"monitored_paths": {
				Type:        "array",
				Description: "List of filesystem paths to monitor",
				Default:     []string{"/", "/var", "/tmp", "/home"},
			},
			"exclude_types": {
				Type:        "array",
				Description: "Filesystem types to exclude from monitoring",
				Default:     []string{"tmpfs", "devtmpfs", "proc", "sysfs"},
			},
			"alert_cooldown": {
				Type:        "integer",
				Description: "Cooldown period between alerts for the same filesystem (seconds)",
				Default:     600,
				Minimum:     bound(60),
			},
		},
		Examples: []map[string]interface{}{
			{"threshold": 85.0, "critical_threshold": 95.0, "interval": 300, "monitored_paths": []string{"/", "/var"}},
			{"threshold": 90.0, "critical_threshold": 98.0, "interval": 600, "exclude_types": []string{"tmpfs", "devtmpfs"}},
		},
		Description: "Disk space monitoring configuration",
	}
}

// HealthChecks reports whether the mount table is readable and how much
// headroom the monitored filesystems have.
func (p *Plugin) HealthChecks(ctx context.Context) map[string]pluginapi.CheckResult {
	p.mu.Lock()
	cfg := p.cfg
	scan := p.scan
	p.mu.Unlock()

	now := time.Now()
	filesystems, err := scan(cfg)
	if err != nil {
		return map[string]pluginapi.CheckResult{
			"disk_scan": {Status: pluginapi.HealthUnhealthy, Message: err.Error(), ObservedAt: now},
		}
	}

	highest := 0.0
	for _, fs := range filesystems {
		if fs.Percent > highest {
			highest = fs.Percent
		}
	}
	return map[string]pluginapi.CheckResult{
		"disk_scan": {
			Status:     pluginapi.HealthHealthy,
			Message:    fmt.Sprintf("%d filesystems visible, highest usage %.1f%%", len(filesystems), highest),
			ObservedAt: now,
		},
	}
}

// scanFilesystems measures every monitored mount from the system mount
// table. Pseudo filesystems and mounts outside the monitored paths are
// skipped, as are mounts that cannot be statted.
func scanFilesystems(cfg Config) ([]filesystem, error) {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return nil, fmt.Errorf("read mount table: %w", err)
	}

	var out []filesystem
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		device, mountpoint, fstype := fields[0], fields[1], fields[2]
		if excluded(cfg.ExcludeTypes, fstype) || !monitored(cfg.MonitoredPaths, mountpoint) {
			continue
		}

		var st unix.Statfs_t
		if err := unix.Statfs(mountpoint, &st); err != nil {
			continue
		}
		total := uint64(st.Blocks) * uint64(st.Bsize)
		if total == 0 {
			continue
		}
		free := uint64(st.Bfree) * uint64(st.Bsize)
		avail := uint64(st.Bavail) * uint64(st.Bsize)
		used := total - free

		out = append(out, filesystem{
			Device:     device,
			Mountpoint: mountpoint,
			Fstype:     fstype,
			Total:      total,
			Used:       used,
			Free:       avail,
			Percent:    round2(float64(used) / float64(used+avail) * 100),
			TotalGB:    gigabytes(total),
			UsedGB:     gigabytes(used),
			FreeGB:     gigabytes(avail),
		})
	}
	return out, nil
}

func excluded(types []string, fstype string) bool {
	for _, t := range types {
		if strings.EqualFold(t, fstype) {
			return true
		}
	}
	return false
}

func monitored(paths []string, mountpoint string) bool {
	if len(paths) == 0 {
		return true
	}
	for _, path := range paths {
		if strings.HasPrefix(mountpoint, path) {
			return true
		}
	}
	return false
}

func gigabytes(bytes uint64) float64 {
	return round2(float64(bytes) / (1 << 30))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func bound(v float64) *float64 {
	return &v
}
