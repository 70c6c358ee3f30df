package cmd

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/core"
	"github.com/brandlens/brandlens/internal/observability"
)

// exitFields describes code and err for a structured log line.
func exitFields(code foundry.ExitCode, err error) []zap.Field {
	fields := []zap.Field{zap.Int("exit_code", int(code))}
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fields = append(fields,
			zap.String("exit_name", info.Name),
			zap.String("exit_category", info.Category))
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID))
		if len(envelope.Context) > 0 {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		if cause, ok := envelope.Original.(error); ok && cause != nil {
			err = cause
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// ExitWithCode logs err with exit code metadata and terminates with code. A nil
// logger falls back to plain stderr output.
func ExitWithCode(logger *logging.Logger, code foundry.ExitCode, msg string, err error) {
	if logger == nil {
		observability.Fatal(code, msg, err)
		return
	}
	logger.Error(msg, exitFields(code, err)...)
	status, _ := observability.ExitReport(code, msg, err)
	os.Exit(status)
}

// ExitWithCodeStderr is ExitWithCode for failures before any logger exists.
func ExitWithCodeStderr(code foundry.ExitCode, msg string, err error) {
	observability.Fatal(code, msg, err)
}

// ExitCodeFor maps a failed command error to its semantic exit code.
func ExitCodeFor(err error) foundry.ExitCode {
	var (
		validationErr *core.ValidationError
		configErr     *core.ConfigError
		providerErr   *core.ProviderError
	)
	switch {
	case stderrors.As(err, &validationErr):
		return foundry.ExitInvalidArgument
	case stderrors.As(err, &configErr):
		return foundry.ExitConfigInvalid
	case stderrors.As(err, &providerErr), stderrors.Is(err, context.DeadlineExceeded):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}
