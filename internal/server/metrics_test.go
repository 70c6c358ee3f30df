package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func withExporterStub(t *testing.T, rt roundTripFunc) {
	t.Helper()
	originalTransport, originalExporter := metricsTransport, observability.PrometheusExporter
	metricsTransport = rt
	observability.PrometheusExporter = exporters.NewPrometheusExporter("test", ":0")
	t.Cleanup(func() {
		metricsTransport = originalTransport
		observability.PrometheusExporter = originalExporter
	})
}

func TestMetricsHandlerProxiesExporter(t *testing.T) {
	var target string
	withExporterStub(t, func(req *http.Request) (*http.Response, error) {
		target = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Connection": {"keep-alive"}},
			Body:       io.NopCloser(strings.NewReader("brandlens_http_requests_total 1\n")),
			Request:    req,
		}, nil
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prometheusContentType, rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "brandlens_http_requests_total")
	assert.True(t, strings.HasPrefix(target, "http://127.0.0.1:"), target)
	assert.True(t, strings.HasSuffix(target, "/metrics"), target)
}

func TestMetricsHandlerExporterDown(t *testing.T) {
	withExporterStub(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeExternalService, body.Error.Code)
	assert.Contains(t, body.Error.Details, "metrics_url")
}

func TestMetricsHandlerWithoutExporter(t *testing.T) {
	original := observability.PrometheusExporter
	observability.PrometheusExporter = nil
	t.Cleanup(func() { observability.PrometheusExporter = original })

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeUnavailable, body.Error.Code)
}
