package metrics

import (
	"time"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/observability"
)

// Evaluation metrics
const (
	EvaluationsTotal   = "brandlens_evaluations_total"
	EvaluationDuration = "brandlens_evaluation_ms"
	ProviderCallsTotal = "brandlens_provider_calls_total"
	ProviderDuration   = "brandlens_provider_ms"
)

// EvaluationRecorder forwards evaluation outcomes to the telemetry system. The zero
// value is ready to use and does nothing until metrics are initialized.
type EvaluationRecorder struct{}

// ProviderCall records one provider call. outcome is "ok" or a provider error kind.
func (EvaluationRecorder) ProviderCall(component core.ComponentName, provider, outcome string, elapsed time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	tags := map[string]string{
		"component": string(component),
		"provider":  provider,
		"outcome":   outcome,
	}
	_ = observability.TelemetrySystem.Counter(ProviderCallsTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(ProviderDuration, elapsed, map[string]string{
		"component": string(component),
		"provider":  provider,
	})
}

// Evaluation records a finished evaluation.
func (EvaluationRecorder) Evaluation(grade core.Grade, elapsed time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(EvaluationsTotal, 1, map[string]string{"grade": string(grade)})
	_ = observability.TelemetrySystem.Histogram(EvaluationDuration, elapsed, nil)
}
