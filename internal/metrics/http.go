package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/brandlens/brandlens/internal/observability"
)

// HTTP metrics.
const (
	HTTPRequestsTotal  = "brandlens_http_requests_total"
	HTTPRequestMs      = "brandlens_http_request_duration_ms"
	HTTPRequestBytes   = "brandlens_http_request_size_bytes"
	HTTPResponseBytes  = "brandlens_http_response_size_bytes"
	HTTPErrorsTotal    = "brandlens_http_errors_total"
	ErrorsTotal        = "brandlens_errors_total"
	ErrorsByRouteTotal = "brandlens_errors_by_route_total"
	PanicsTotal        = "brandlens_panics_total"
)

// HTTPRequest is one served request as seen by the instrumentation middleware.
type HTTPRequest struct {
	Method        string
	Route         string
	Status        int
	Elapsed       time.Duration
	RequestBytes  int64
	ResponseBytes int64
}

// fixedRoutes are reported verbatim; anything else not matched by a prefix rule
// collapses to /unknown.
var fixedRoutes = map[string]bool{
	"/":                  true,
	"/version":           true,
	"/metrics":           true,
	"/admin/signal":      true,
	"/v1/evaluate":       true,
	"/v1/evaluate/batch": true,
	"/v1/locales":        true,
}

// RouteLabel maps a raw path to a low-cardinality route label for requests the
// router did not match.
func RouteLabel(path string) string {
	switch {
	case fixedRoutes[path]:
		return path
	case strings.HasPrefix(path, "/v1/domain/"):
		return "/v1/domain/{label}"
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	default:
		return "/unknown"
	}
}

// statusClass is "" for successful responses.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return ""
	}
}

// RecordHTTPRequest emits the request counter, latency histogram and size gauges,
// plus an error counter for 4xx and 5xx responses.
func RecordHTTPRequest(req HTTPRequest) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}
	route := map[string]string{"method": req.Method, "endpoint": req.Route}
	tags := map[string]string{"method": req.Method, "endpoint": req.Route, "status": strconv.Itoa(req.Status)}

	_ = sys.Counter(HTTPRequestsTotal, 1, tags)
	_ = sys.Histogram(HTTPRequestMs, req.Elapsed, tags)
	_ = sys.Gauge(HTTPRequestBytes, float64(req.RequestBytes), route)
	_ = sys.Gauge(HTTPResponseBytes, float64(req.ResponseBytes), route)

	if class := statusClass(req.Status); class != "" {
		tags["error_type"] = class
		_ = sys.Counter(HTTPErrorsTotal, 1, tags)
	}
}

// RecordError counts an error envelope written to a client.
func RecordError(code string, status int, path string) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}
	_ = sys.Counter(ErrorsTotal, 1, map[string]string{"error_code": code, "http_status": strconv.Itoa(status)})
	if path != "" {
		_ = sys.Counter(ErrorsByRouteTotal, 1, map[string]string{"endpoint": RouteLabel(path), "error_code": code})
	}
}

// RecordPanic counts a handler panic caught by the recovery middleware.
func RecordPanic() {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(PanicsTotal, 1, nil)
	}
}
