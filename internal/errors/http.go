package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/observability"
)

var statusByCode = map[string]int{
	CodeInvalidInput:     http.StatusBadRequest,
	CodeValidation:       http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeMethodNotAllowed: http.StatusMethodNotAllowed,
	CodeTimeout:          http.StatusGatewayTimeout,
	CodeExternalService:  http.StatusBadGateway,
	CodeUnavailable:      http.StatusServiceUnavailable,
}

// HTTPStatusFromEnvelope returns the status for the envelope's code; unknown codes
// are 500.
func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[envelope.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HTTPErrorDetail is the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail as {"error": {...}}.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// responseDetails merges envelope details with its context; details win.
func responseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if len(envelope.Details) == 0 && len(envelope.Context) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for k, v := range envelope.Context {
		out[k] = v
	}
	for k, v := range envelope.Details {
		out[k] = v
	}
	return out
}

// RespondWithError writes err as a JSON error envelope. Domain errors are mapped
// with FromDomainError.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		RespondWithEnvelope(w, r, envelope)
		return
	}
	RespondWithEnvelope(w, r, FromDomainError(requestContext(r), err))
}

// RespondWithEnvelope logs envelope at a level matching its severity, counts it,
// and writes it with the status for its code.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil || envelope == nil {
		return
	}
	envelope = EnsureCorrelationID(envelope, requestContext(r))
	status := HTTPStatusFromEnvelope(envelope)

	path := ""
	if r != nil {
		path = r.URL.Path
	}
	logEnvelope(envelope, status)
	metrics.RecordError(envelope.Code, status, path)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      envelope.Code,
		Message:   envelope.Message,
		Details:   responseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}})
}

func logEnvelope(envelope *errors.ErrorEnvelope, status int) {
	log := observability.ServerLogger
	if log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
		zap.String("request_id", envelope.CorrelationID),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	if len(envelope.Context) > 0 {
		fields = append(fields, zap.Any("context", envelope.Context))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		log.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		log.Warn(envelope.Message, fields...)
	default:
		log.Info(envelope.Message, fields...)
	}
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
