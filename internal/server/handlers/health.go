package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/metrics"
)

// Check statuses, worst last.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusTimeout   = "timeout"
	StatusUnhealthy = "unhealthy"
)

// ErrDegraded marks a check that still serves traffic with reduced evidence, such
// as a provider with no credentials.
var ErrDegraded = stderrors.New("degraded")

// HealthChecker is a component that can report its own health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

// HealthReport is the body of every successful health probe.
type HealthReport struct {
	Status    string            `json:"status"`
	Probe     string            `json:"probe"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
	CheckedAt time.Time         `json:"checked_at"`
}

// HealthManager runs the registered checkers behind the /health probes.
type HealthManager struct {
	version string
	created time.Time
	started atomic.Bool

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		created:  time.Now(),
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds or replaces the checker reported under name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// MarkStarted flips the startup probe to passing. The server calls it once its
// listener is bound.
func (hm *HealthManager) MarkStarted() {
	hm.started.Store(true)
}

// Check runs every checker concurrently and returns each one's status.
func (hm *HealthManager) Check(ctx context.Context) map[string]string {
	hm.mu.RLock()
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(checkers))
		g       errgroup.Group
	)
	for name, checker := range checkers {
		g.Go(func() error {
			start := time.Now()
			status := classify(ctx, checker.CheckHealth(ctx))
			metrics.HealthCheck(name, status, time.Since(start))

			mu.Lock()
			results[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func classify(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return StatusHealthy
	case stderrors.Is(err, ErrDegraded):
		return StatusDegraded
	case ctx.Err() != nil:
		return StatusTimeout
	default:
		return StatusUnhealthy
	}
}

var severity = map[string]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusTimeout:   1,
	StatusUnhealthy: 2,
}

// overallStatus is the worst individual status. A timeout counts as degraded.
func overallStatus(checks map[string]string) string {
	worst := StatusHealthy
	for _, status := range checks {
		if severity[status] > severity[worst] {
			worst = status
		}
	}
	if worst == StatusTimeout {
		return StatusDegraded
	}
	return worst
}

func (hm *HealthManager) report(probe, status string, checks map[string]string) HealthReport {
	return HealthReport{
		Status:    status,
		Probe:     probe,
		Version:   hm.version,
		Uptime:    time.Since(hm.created).Truncate(time.Second).String(),
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

// runChecks answers 503 when any checker is unhealthy and 200 otherwise.
func (hm *HealthManager) runChecks(w http.ResponseWriter, r *http.Request, probe string, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := hm.Check(ctx)
	status := overallStatus(checks)
	if status == StatusUnhealthy {
		apperrors.RespondWithError(w, r, probeFailure(probe, status, checks))
		return
	}
	writeJSON(w, http.StatusOK, hm.report(probe, status, checks))
}

func probeFailure(probe, status string, checks map[string]string) error {
	envelope := apperrors.NewUnavailableError(probe + " probe failed")
	details := map[string]interface{}{"probe": probe, "status": status}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope = envelope.WithDetails(details)

	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	envelope, _ = envelope.WithContext(map[string]interface{}{"probe": probe, "failing_checks": failing})
	return envelope
}

// HealthHandler serves GET /health with every check's status.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.runChecks(w, r, "aggregate", 5*time.Second)
}

// ReadinessHandler serves GET /health/ready.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.runChecks(w, r, "ready", 5*time.Second)
}

// LivenessHandler serves GET /health/live. It runs no checks: a response means
// the process is alive.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hm.report("live", StatusHealthy, nil))
}

// StartupHandler serves GET /health/startup, failing until MarkStarted.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if !hm.started.Load() {
		apperrors.RespondWithError(w, r, probeFailure("startup", "starting", nil))
		return
	}
	writeJSON(w, http.StatusOK, hm.report("startup", StatusHealthy, nil))
}
