package core

import (
	"context"
	"errors"
	"fmt"
)

// ProviderErrorKind classifies provider failures.
type ProviderErrorKind string

const (
	ProviderCredentialsMissing ProviderErrorKind = "credentials_missing"
	ProviderUnauthorized       ProviderErrorKind = "unauthorized"
	ProviderForbidden          ProviderErrorKind = "forbidden"
	ProviderAPIResponse        ProviderErrorKind = "api_response"
	ProviderHTTPStatus         ProviderErrorKind = "http_status"
	ProviderNetwork            ProviderErrorKind = "network"
	ProviderMalformed          ProviderErrorKind = "malformed"
	ProviderTimeout            ProviderErrorKind = "timeout"
	ProviderRateLimited        ProviderErrorKind = "rate_limited"
)

// ProviderError reports a failed provider call.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches another *ProviderError with the same kind, so callers can test
// errors.Is(err, &ProviderError{Kind: ProviderUnauthorized}).
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Provider == "" || t.Provider == e.Provider)
}

// NewProviderError classifies transport failures: context deadlines become
// timeouts, everything else is a network error.
func NewProviderError(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	kind := ProviderNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ProviderTimeout
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// ConfigError reports invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsFatal reports whether err must abort an evaluation.
func IsFatal(err error) bool {
	var ce *ConfigError
	var ve *ValidationError
	return errors.As(err, &ce) || errors.As(err, &ve)
}
