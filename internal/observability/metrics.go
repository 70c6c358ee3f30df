package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is where the exporter listens when nothing else is known.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives every metric. Nil until InitMetrics runs, in which
	// case emitters do nothing.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint behind /metrics.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free port) and
// routes TelemetrySystem through it. Metrics are prefixed with namespace, or with
// service when namespace is empty.
func InitMetrics(service string, port int, namespace ...string) error {
	prefix := service
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}
	port = max(port, 0)

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}
	metricsPort = boundPort(exporter.GetAddr(), port)

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("telemetry system: %w", err)
	}
	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the exporter actually bound, or
// DefaultMetricsPort before InitMetrics.
func GetMetricsPort() int {
	if metricsPort == 0 {
		return DefaultMetricsPort
	}
	return metricsPort
}

// boundPort reads the port from the exporter's listen address, falling back to the
// requested one.
func boundPort(addr string, requested int) int {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return requested
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		return requested
	}
	return port
}
