package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/core/engine"
	apperrors "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/observability"
)

const (
	maxRequestBytes = 64 << 10
	defaultMaxBatch = 25
)

// Evaluator is the evaluation surface the API needs.
type Evaluator interface {
	Evaluate(ctx context.Context, title string, locales []core.LocaleSpec, cfg core.UniquenessConfig) (*core.UniquenessReport, error)
	EvaluateBatch(ctx context.Context, titles []string, locales []core.LocaleSpec, cfg core.UniquenessConfig, workers int) ([]core.BatchResult, error)
}

// ReportRecorder persists finished evaluations.
type ReportRecorder interface {
	SaveEvaluation(ctx context.Context, report *core.UniquenessReport) (int64, error)
}

// EvaluationAPI serves the /v1 endpoints.
type EvaluationAPI struct {
	Evaluator      Evaluator
	Domain         engine.DomainChecker
	Config         core.UniquenessConfig
	DefaultLocales []string
	CustomLocales  map[string]core.LocaleSpec
	History        ReportRecorder
	Workers        int
	MaxBatch       int
}

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	Title       string            `json:"title"`
	Locales     []string          `json:"locales,omitempty"`
	LocaleSpecs []core.LocaleSpec `json:"locale_specs,omitempty"`
	Engine      string            `json:"engine,omitempty"`
	Aggregation string            `json:"aggregation,omitempty"`
}

// BatchRequest is the body of POST /v1/evaluate/batch.
type BatchRequest struct {
	Titles      []string `json:"titles"`
	Locales     []string `json:"locales,omitempty"`
	Engine      string   `json:"engine,omitempty"`
	Aggregation string   `json:"aggregation,omitempty"`
}

// BatchResponse wraps batch results.
type BatchResponse struct {
	Results []core.BatchResult `json:"results"`
}

// LocalesResponse lists the locale presets and user-defined locales.
type LocalesResponse struct {
	Locales []core.LocaleSpec `json:"locales"`
}

// Routes mounts the API on r.
func (api *EvaluationAPI) Routes(r chi.Router) {
	r.Post("/evaluate", api.Evaluate)
	r.Post("/evaluate/batch", api.EvaluateBatch)
	r.Get("/domain/{label}", api.DomainStatus)
	r.Get("/locales", api.Locales)
}

// Evaluate handles POST /v1/evaluate.
func (api *EvaluationAPI) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg, err := api.configFor(req.Engine, req.Aggregation)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	var locales []core.LocaleSpec
	if len(req.Locales) > 0 || len(req.LocaleSpecs) == 0 {
		locales, err = api.locales(req.Locales)
		if err != nil {
			apperrors.RespondWithError(w, r, err)
			return
		}
	}
	locales = append(locales, req.LocaleSpecs...)

	report, err := api.Evaluator.Evaluate(r.Context(), req.Title, locales, cfg)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	api.record(r.Context(), report)

	writeJSON(w, http.StatusOK, report)
}

// EvaluateBatch handles POST /v1/evaluate/batch.
func (api *EvaluationAPI) EvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	maxBatch := api.MaxBatch
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	if len(req.Titles) == 0 {
		apperrors.RespondWithError(w, r, &core.ValidationError{Field: "titles", Reason: "at least one title is required"})
		return
	}
	if len(req.Titles) > maxBatch {
		apperrors.RespondWithError(w, r, &core.ValidationError{Field: "titles", Reason: fmt.Sprintf("at most %d titles per request", maxBatch)})
		return
	}

	cfg, err := api.configFor(req.Engine, req.Aggregation)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	locales, err := api.locales(req.Locales)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	results, err := api.Evaluator.EvaluateBatch(r.Context(), req.Titles, locales, cfg, api.Workers)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	for _, result := range results {
		if result.Report != nil {
			api.record(r.Context(), result.Report)
		}
	}

	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

// DomainStatus handles GET /v1/domain/{label}.
func (api *EvaluationAPI) DomainStatus(w http.ResponseWriter, r *http.Request) {
	if api.Domain == nil {
		apperrors.RespondWithError(w, r, apperrors.NewUnavailableError("domain checker not configured"))
		return
	}
	label := chi.URLParam(r, "label")
	result, err := api.Domain.CheckDomain(r.Context(), label)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Locales handles GET /v1/locales.
func (api *EvaluationAPI) Locales(w http.ResponseWriter, r *http.Request) {
	specs, err := core.ResolveLocales(core.LocaleNames(api.CustomLocales), api.CustomLocales)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LocalesResponse{Locales: specs})
}

func (api *EvaluationAPI) configFor(engineName, aggregation string) (core.UniquenessConfig, error) {
	cfg := api.Config.Clone()
	if strings.TrimSpace(engineName) != "" {
		name, ok := core.CanonicalEngine(engineName)
		if !ok {
			return cfg, &core.ValidationError{Field: "engine", Reason: fmt.Sprintf("unknown engine %q", engineName)}
		}
		cfg.MatcherEngine = name
	}
	if strings.TrimSpace(aggregation) != "" {
		mode, ok := core.ParseAggregationMode(aggregation)
		if !ok {
			return cfg, &core.ValidationError{Field: "aggregation", Reason: fmt.Sprintf("unknown aggregation %q", aggregation)}
		}
		cfg.Aggregation = mode
	}
	return cfg, nil
}

func (api *EvaluationAPI) locales(names []string) ([]core.LocaleSpec, error) {
	if len(names) == 0 {
		names = api.DefaultLocales
	}
	return core.ResolveLocales(names, api.CustomLocales)
}

func (api *EvaluationAPI) record(ctx context.Context, report *core.UniquenessReport) {
	if api.History == nil {
		return
	}
	if _, err := api.History.SaveEvaluation(ctx, report); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to record evaluation",
			zap.String("title", report.Title),
			zap.Error(err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		envelope := apperrors.NewInvalidInputError("request body must be a JSON object")
		envelope, _ = envelope.WithContext(map[string]interface{}{"decode_error": err.Error()})
		apperrors.RespondWithError(w, r, envelope)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
