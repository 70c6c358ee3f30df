package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	apperrors "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/observability"
)

// Recover turns a handler panic into a 500 error envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			metrics.RecordPanic()

			requestID := observability.RequestID(r.Context())
			if log := observability.ServerLogger; log != nil {
				log.Error("panic recovered",
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestID),
					zap.Any("panic", rv),
					zap.ByteString("stack", debug.Stack()))
			}

			envelope := apperrors.NewInternalError(fmt.Sprintf("panic: %v", rv)).WithCorrelationID(requestID)
			envelope, _ = envelope.WithSeverity(errors.SeverityCritical)
			envelope, _ = envelope.WithContext(map[string]interface{}{"path": r.URL.Path})
			apperrors.RespondWithEnvelope(w, r, envelope)
		}()
		next.ServeHTTP(w, r)
	})
}
