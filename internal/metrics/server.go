package metrics

import (
	"time"

	"github.com/brandlens/brandlens/internal/observability"
)

// Server lifecycle and health metrics.
const (
	ServerStartTime     = "brandlens_server_start_time_seconds"
	HealthChecksTotal   = "brandlens_health_checks_total"
	HealthCheckDuration = "brandlens_health_check_ms"
)

// ServerStarted records the Unix time serve began accepting requests.
func ServerStarted(at time.Time) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(ServerStartTime, float64(at.Unix()), nil)
	}
}

// HealthCheck records one checker run. status is the checker's reported status.
func HealthCheck(name, status string, elapsed time.Duration) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}
	_ = sys.Counter(HealthChecksTotal, 1, map[string]string{"check": name, "status": status})
	_ = sys.Histogram(HealthCheckDuration, elapsed, map[string]string{"check": name})
}
