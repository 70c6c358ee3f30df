package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/observability"
)

// statusRecorder remembers the status and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.written += int64(n)
	return n, err
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// routeOf prefers the matched chi pattern so path parameters never become labels.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && pattern != "/*" {
			return pattern
		}
	}
	return metrics.RouteLabel(r.URL.Path)
}

// Instrument records request metrics and writes one access log line per request.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		sample := metrics.HTTPRequest{
			Method:        r.Method,
			Route:         routeOf(r),
			Status:        rec.code(),
			Elapsed:       time.Since(start),
			RequestBytes:  max(r.ContentLength, 0),
			ResponseBytes: rec.written,
		}
		metrics.RecordHTTPRequest(sample)

		if log := observability.ServerLogger; log != nil {
			log.Info("HTTP request completed",
				zap.String("method", sample.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", sample.Route),
				zap.Int("status", sample.Status),
				zap.Duration("duration", sample.Elapsed),
				zap.Int64("response_size", sample.ResponseBytes),
				zap.String("request_id", observability.RequestID(r.Context())))
		}
	})
}
