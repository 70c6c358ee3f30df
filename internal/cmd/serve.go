package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/core/checker"
	"github.com/brandlens/brandlens/internal/core/store"
	errwrap "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/observability"
	"github.com/brandlens/brandlens/internal/server"
	"github.com/brandlens/brandlens/internal/server/handlers"
)

const defaultShutdownTimeout = 10 * time.Second

func telemetryCheck(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

func identityCheck(identity *appidentity.Identity) handlers.HealthCheckFunc {
	return func(context.Context) error {
		var missing []string
		if identity == nil {
			missing = []string{"identity"}
		} else {
			for field, value := range map[string]string{
				"binary name": identity.BinaryName,
				"env prefix":  identity.EnvPrefix,
				"config name": identity.ConfigName,
			} {
				if value == "" {
					missing = append(missing, field)
				}
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return errwrap.NewConfigInvalidError("app identity missing " + strings.Join(missing, ", "))
		}
		return nil
	}
}

// storeHealthChecker pings the persisted cache. A missing store only degrades the
// service since evaluations fall back to the memory cache.
func storeHealthChecker(db *store.Store) handlers.HealthCheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return fmt.Errorf("%w: store unavailable, using memory cache", handlers.ErrDegraded)
		}
		if err := db.Ping(ctx); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store ping failed")
		}
		return nil
	}
}

// providersHealthChecker reports providers that will score neutral for lack of
// credentials.
func providersHealthChecker(creds checker.Credentials) handlers.HealthCheckFunc {
	return func(ctx context.Context) error {
		missing := missingCredentials(creds)
		if len(missing) == 0 {
			return nil
		}
		names := make([]string, 0, len(missing))
		for _, name := range missing {
			names = append(names, string(name))
		}
		return fmt.Errorf("%w: missing credentials for %s", handlers.ErrDegraded, strings.Join(names, ", "))
	}
}

func healthManager(cfg *config.Config, identity *appidentity.Identity, db *store.Store) *handlers.HealthManager {
	hm := handlers.NewHealthManager(versionInfo.Version)
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", handlers.HealthCheckFunc(telemetryCheck))
	}
	hm.RegisterChecker("app_identity", identityCheck(identity))
	hm.RegisterChecker("store", storeHealthChecker(db))
	hm.RegisterChecker("providers", providersHealthChecker(credentialsFor(cfg)))
	return hm
}

func evaluationAPI(cfg *config.Config, rt *appRuntime, db *store.Store) *handlers.EvaluationAPI {
	api := &handlers.EvaluationAPI{
		Evaluator:      rt.evaluator,
		Domain:         rt.domain,
		Config:         cfg.Uniqueness,
		DefaultLocales: cfg.Locales.Default,
		CustomLocales:  cfg.Locales.Custom,
		Workers:        cfg.Workers,
	}
	if db != nil {
		api.History = db
	}
	return api
}

// onShutdown registers the teardown steps. signals runs them LIFO, so the logger
// flush goes first here and runs last.
func onShutdown(srv *server.Server, rt *appRuntime, timeout time.Duration) {
	log := observability.ServerLogger
	signals.OnShutdown(func(context.Context) error {
		if err := log.Sync(); err != nil {
			log.Debug("Logger sync returned error", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(context.Context) error {
		rt.Close()
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Shutting down HTTP server", zap.Duration("timeout", timeout))
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		log.Info("HTTP server stopped")
		return nil
	})
}

// onReload validates the config on SIGHUP. Running components keep their settings
// until restart.
func onReload() {
	log := observability.ServerLogger
	signals.OnReload(func(ctx context.Context) error {
		reloaded, err := config.Load(ctx)
		if err != nil {
			log.Error("Config reload failed", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		log.Info("Configuration is valid; restart to apply changes",
			zap.String("matcher_engine", reloaded.Uniqueness.MatcherEngine),
			zap.String("aggregation", string(reloaded.Uniqueness.Aggregation)))
		return nil
	})
}

func runServe(ctx context.Context, cfg *config.Config) error {
	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()
	observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, namespace)
	log := observability.ServerLogger

	if cfg.Metrics.Enabled {
		port := cfg.Metrics.Port
		if port == 0 {
			port = observability.DefaultMetricsPort
		}
		if err := observability.InitMetrics(identity.BinaryName, port, namespace); err != nil {
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	if err := checker.LoadDotEnv(envFiles(cfg)...); err != nil {
		log.Warn("Failed to load env file", zap.Error(err))
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		log.Warn("Store unavailable, using in-memory cache", zap.Error(err))
		db = nil
	}
	rt := newRuntime(cfg, db, true)
	handlers.SetAppIdentity(identity)

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
		server.WithHealth(healthManager(cfg, identity, db)),
		server.WithAPI(evaluationAPI(cfg, rt, db)),
		server.WithAdminToken(cfg.Server.AdminToken))

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	onShutdown(srv, rt, timeout)
	onReload()
	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		log.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	log.Info("Starting brandlens server",
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("store", db != nil))

	errc := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()
	go func() {
		if err := signals.Listen(ctx); err != nil {
			errc <- err
		}
	}()

	if err := <-errc; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing the /v1 evaluation API, health probes and metrics.

Signals:
  SIGINT/SIGTERM  graceful shutdown (Ctrl+C twice within 2s forces quit)
  SIGHUP          re-validate the configuration; restart to apply it

POST /admin/signal is enabled when server.admin_token (BRANDLENS_ADMIN_TOKEN) is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd, map[string]string{"server.host": "host", "server.port": "port"})
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host (default from config)")
	serveCmd.Flags().IntP("port", "p", 8080, "server port (default from config)")
}
