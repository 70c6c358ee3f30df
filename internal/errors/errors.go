// Package errors builds gofulmen error envelopes for the CLI and HTTP surfaces and
// maps evaluation failures onto them.
package errors

import (
	"context"
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/observability"
)

// Error codes returned in envelopes.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeDatabase         = "DATABASE_ERROR"
	CodeExternalService  = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

func NewUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnavailable, message)
}

// Wrap builds a code envelope around err. The request ID on ctx, or a fresh UUID,
// becomes both the correlation and trace ID.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := observability.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	envelope := errors.NewErrorEnvelope(code, message).WithCorrelationID(id).WithTraceID(id)
	if err != nil {
		if updated, updateErr := envelope.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); updateErr == nil {
			envelope = updated
		}
	}
	return envelope
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInternal, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeConfigInvalid, err, message)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeDatabase, err, message)
}

// FromDomainError maps evaluation errors onto envelopes: bad input is a 400,
// bad configuration a 500, provider failures a 502 or 504.
func FromDomainError(ctx context.Context, err error) *errors.ErrorEnvelope {
	var (
		ve *core.ValidationError
		ce *core.ConfigError
		pe *core.ProviderError
	)
	switch {
	case stderrors.As(err, &ve):
		return withContext(Wrap(ctx, CodeValidation, err, ve.Error()), map[string]interface{}{"field": ve.Field})
	case stderrors.As(err, &ce):
		env, _ := Wrap(ctx, CodeConfigInvalid, err, ce.Error()).WithSeverity(errors.SeverityHigh)
		return env
	case stderrors.As(err, &pe):
		code := CodeExternalService
		if pe.Kind == core.ProviderTimeout {
			code = CodeTimeout
		}
		return withContext(Wrap(ctx, code, err, "provider "+pe.Provider+" failed"),
			map[string]interface{}{"provider": pe.Provider, "kind": string(pe.Kind)})
	case stderrors.Is(err, context.DeadlineExceeded):
		return Wrap(ctx, CodeTimeout, err, "request timed out")
	default:
		return EnsureEnvelope(err)
	}
}

// withContext merges extra into the envelope context.
func withContext(envelope *errors.ErrorEnvelope, extra map[string]interface{}) *errors.ErrorEnvelope {
	merged := make(map[string]interface{}, len(envelope.Context)+len(extra))
	for k, v := range envelope.Context {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	if updated, err := envelope.WithContext(merged); err == nil {
		return updated
	}
	return envelope
}

// EnsureEnvelope returns err when it already is an envelope and an
// INTERNAL_ERROR envelope wrapping it otherwise.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	var envelope *errors.ErrorEnvelope
	switch {
	case err == nil:
		env, _ := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error").WithSeverity(errors.SeverityCritical)
		return env
	case stderrors.As(err, &envelope) && envelope != nil:
		return envelope
	}
	env := withContext(errors.NewErrorEnvelope(CodeInternal, "unexpected error"), map[string]interface{}{"wrapped_error": err.Error()})
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// EnsureCorrelationID fills an empty correlation ID from ctx, or with a generated
// fallback ID.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	id := observability.RequestID(ctx)
	if id == "" {
		id = "fallback-" + errors.GenerateCorrelationID()
	}
	return envelope.WithCorrelationID(id)
}
