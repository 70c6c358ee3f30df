package observability

import (
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-oriented output for commands.
	CLILogger *logging.Logger

	// ServerLogger writes JSON lines while serve is running.
	ServerLogger *logging.Logger
)

var levelNames = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var severities = map[string]logging.Severity{
	"TRACE": logging.TRACE,
	"DEBUG": logging.DEBUG,
	"INFO":  logging.INFO,
	"WARN":  logging.WARN,
	"ERROR": logging.ERROR,
}

// levelName normalizes a logging.level value. Unknown values mean INFO.
func levelName(level string) string {
	if name, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return name
	}
	return "INFO"
}

func severityFor(level string) logging.Severity {
	return severities[levelName(level)]
}

// InitCLILogger sets CLILogger. verbose wins over level.
func InitCLILogger(service, level string, verbose bool) {
	logger, err := logging.NewCLI(service)
	if err != nil {
		Fatal(foundry.ExitConfigInvalid, "CLI logger init failed", err)
	}
	switch {
	case verbose:
		logger.SetLevel(logging.DEBUG)
	case level != "":
		logger.SetLevel(severityFor(level))
	}
	CLILogger = logger
}

// Logger prefers the server logger when serve is running.
func Logger() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}

func serverLoggerConfig(service, level, namespace string) *logging.LoggerConfig {
	static := map[string]any{}
	if namespace != "" {
		static["namespace"] = namespace
	}
	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: levelName(level),
		Service:      service,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{{
			Type:    "console",
			Format:  "json",
			Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
		}},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// InitServerLogger sets ServerLogger to the structured profile, writing JSON to
// stderr and stamping every line with namespace when given.
func InitServerLogger(service, level string, namespace ...string) {
	ns := ""
	if len(namespace) > 0 {
		ns = namespace[0]
	}
	logger, err := logging.New(serverLoggerConfig(service, level, ns))
	if err != nil {
		Fatal(foundry.ExitConfigInvalid, "server logger init failed", err)
	}
	ServerLogger = logger
}
