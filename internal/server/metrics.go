package server

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/observability"
)

const prometheusContentType = "text/plain; version=0.0.4"

// metricsTransport carries scrapes to the local exporter.
var metricsTransport http.RoundTripper = &http.Transport{
	ResponseHeaderTimeout: 5 * time.Second,
}

func exporterURL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort("127.0.0.1", strconv.Itoa(observability.GetMetricsPort())),
		Path:   "/metrics",
	}
}

// MetricsHandler serves the Prometheus exporter's output on the API listener so a
// single port can be scraped.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		apperrors.RespondWithError(w, r, apperrors.NewUnavailableError("Metrics exporter not initialized"))
		return
	}

	target := exporterURL()
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL = target
			pr.Out.Host = target.Host
		},
		Transport: metricsTransport,
		ModifyResponse: func(resp *http.Response) error {
			if resp.Header.Get("Content-Type") == "" {
				resp.Header.Set("Content-Type", prometheusContentType)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			envelope := apperrors.Wrap(r.Context(), apperrors.CodeExternalService, err, "Prometheus exporter unavailable")
			envelope, _ = envelope.WithContext(map[string]interface{}{
				"metrics_url":   target.String(),
				"wrapped_error": err.Error(),
			})
			apperrors.RespondWithError(w, r, envelope)
		},
	}
	proxy.ServeHTTP(w, r)
}
