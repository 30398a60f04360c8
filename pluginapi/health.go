package pluginapi

import (
	"context"
	"time"
)

// HealthStatus is the coarse health classification of a plugin.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is one named sub-check inside a health report.
type CheckResult struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	ObservedAt time.Time    `json:"observed_at"`
}

// HealthReport is the payload returned by get_health. Uptime is in seconds.
type HealthReport struct {
	Status     HealthStatus           `json:"status"`
	Message    string                 `json:"message,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	LastCheck  time.Time              `json:"last_check"`
	Uptime     float64                `json:"uptime"`
	ErrorCount int                    `json:"error_count"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
}

// HealthChecker is implemented by plugins that contribute sub-checks to
// their health report.
type HealthChecker interface {
	HealthChecks(ctx context.Context) map[string]CheckResult
}

// AggregateHealth folds sub-check statuses into one overall status: any
// unhealthy check wins, then any degraded one. A healthy check older than
// maxAge no longer counts as fresh and is degraded first.
func AggregateHealth(checks map[string]CheckResult, now time.Time, maxAge time.Duration) HealthStatus {
	status := HealthHealthy
	for _, c := range checks {
		s := c.Status
		if s == HealthHealthy && maxAge > 0 && now.Sub(c.ObservedAt) > maxAge {
			s = HealthDegraded
		}
		switch s {
		case HealthUnhealthy:
			return HealthUnhealthy
		case HealthDegraded:
			status = HealthDegraded
		}
	}
	return status
}
