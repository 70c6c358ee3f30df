package observability

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
)

// ExitReport renders the lines printed to stderr before a fatal exit together with
// the process status that goes with code.
func ExitReport(code foundry.ExitCode, msg string, err error) (int, string) {
	var b strings.Builder
	b.WriteString("FATAL: ")
	b.WriteString(msg)

	var envelope *errors.ErrorEnvelope
	switch {
	case stderrors.As(err, &envelope) && envelope != nil:
		fmt.Fprintf(&b, " [%s]: %s", envelope.Code, envelope.Message)
		if envelope.CorrelationID != "" {
			fmt.Fprintf(&b, " (correlation: %s)", envelope.CorrelationID)
		}
		if cause, ok := envelope.Original.(error); ok && cause != nil {
			fmt.Fprintf(&b, "\ncause: %v", cause)
		}
	case err != nil:
		fmt.Fprintf(&b, ": %v", err)
	}

	info, ok := foundry.GetExitCodeInfo(code)
	if !ok {
		fmt.Fprintf(&b, "\nexit code %d", code)
		return int(code), b.String()
	}
	fmt.Fprintf(&b, "\nexit code %d (%s): %s", info.Code, info.Name, info.Description)
	return info.Code, b.String()
}

// Fatal writes ExitReport to stderr and exits. Used before any logger exists.
func Fatal(code foundry.ExitCode, msg string, err error) {
	status, report := ExitReport(code, msg, err)
	fmt.Fprintln(os.Stderr, report)
	os.Exit(status)
}
