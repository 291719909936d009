package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
)

// HealthChecker checks the health of a dependency
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheckResult
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       HealthStatus           `json:"status"`
	Message      string                 `json:"message,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ResponseTime time.Duration          `json:"response_time"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	LastChecked  time.Time              `json:"last_checked"`
}

// HealthStatus represents the health status
type HealthStatus string

const (
	HealthStatusPass HealthStatus = "pass"
	HealthStatusWarn HealthStatus = "warn"
	HealthStatusFail HealthStatus = "fail"
)

// HealthConfig configures the health service
type HealthConfig struct {
	Timeout        time.Duration
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// HealthService runs registered checks for liveness and readiness probes
type HealthService struct {
	mu        sync.RWMutex
	checkers  []HealthChecker
	config    HealthConfig
	tracer    trace.Tracer
	startTime time.Time
}

// NewHealthService creates a new health service
func NewHealthService(config HealthConfig) *HealthService {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &HealthService{
		config:    config,
		tracer:    otel.Tracer("api.rest.health"),
		startTime: time.Now(),
	}
}

// RegisterChecker adds a dependency check to readiness
func (h *HealthService) RegisterChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status        HealthStatus                 `json:"status"`
	Version       string                       `json:"version"`
	ServiceName   string                       `json:"service_name"`
	Environment   string                       `json:"environment,omitempty"`
	UptimeSeconds float64                      `json:"uptime_seconds"`
	Checks        map[string]HealthCheckResult `json:"checks,omitempty"`
}

// LivenessHandler reports that the process is serving
func (h *HealthService) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := h.tracer.Start(r.Context(), "health.liveness")
		defer span.End()

		writeHealth(w, http.StatusOK, HealthResponse{
			Status:        HealthStatusPass,
			Version:       h.config.ServiceVersion,
			ServiceName:   h.config.ServiceName,
			Environment:   h.config.Environment,
			UptimeSeconds: time.Since(h.startTime).Seconds(),
		})
	}
}

// ReadinessHandler runs every check and fails when any check fails
func (h *HealthService) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "health.readiness")
		defer span.End()

		checks := h.runChecks(ctx)

		status := HealthStatusPass
		statusCode := http.StatusOK
		for _, result := range checks {
			if result.Status == HealthStatusFail {
				status = HealthStatusFail
				statusCode = http.StatusServiceUnavailable
				break
			}
			if result.Status == HealthStatusWarn {
				status = HealthStatusWarn
			}
		}

		span.SetAttributes(
			attribute.String("health.status", string(status)),
			attribute.Int("health.checks_count", len(checks)),
		)

		writeHealth(w, statusCode, HealthResponse{
			Status:        status,
			Version:       h.config.ServiceVersion,
			ServiceName:   h.config.ServiceName,
			Environment:   h.config.Environment,
			UptimeSeconds: time.Since(h.startTime).Seconds(),
			Checks:        checks,
		})
	}
}

func (h *HealthService) runChecks(ctx context.Context) map[string]HealthCheckResult {
	h.mu.RLock()
	checkers := append([]HealthChecker(nil), h.checkers...)
	h.mu.RUnlock()

	results := make(map[string]HealthCheckResult, len(checkers))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range checkers {
		wg.Add(1)
		go func(c HealthChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			result.ResponseTime = time.Since(start)
			result.LastChecked = time.Now().UTC()

			mu.Lock()
			results[c.Name()] = result
			mu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

func writeHealth(w http.ResponseWriter, status int, body HealthResponse) {
	w.Header().Set("Content-Type", "application/health+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// SnapshotSource is anything that can hand out the current registry view
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*dnc.Snapshot, error)
}

// RegistryHealthChecker fails when no registry snapshot can be taken
type RegistryHealthChecker struct {
	source SnapshotSource
}

// NewRegistryHealthChecker creates a registry checker
func NewRegistryHealthChecker(source SnapshotSource) *RegistryHealthChecker {
	return &RegistryHealthChecker{source: source}
}

func (c *RegistryHealthChecker) Name() string {
	return "dnc_registry"
}

func (c *RegistryHealthChecker) Check(ctx context.Context) HealthCheckResult {
	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		return HealthCheckResult{Status: HealthStatusFail, Error: err.Error()}
	}
	if snap == nil {
		return HealthCheckResult{Status: HealthStatusFail, Message: "no snapshot available"}
	}
	return HealthCheckResult{
		Status: HealthStatusPass,
		Metadata: map[string]interface{}{
			"version": snap.Version,
			"entries": len(snap.Entries),
		},
	}
}

// Pinger is satisfied by the Redis snapshot store
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisHealthChecker warns rather than fails: filtering keeps working from
// the in-process registry while the distribution cache is down.
type RedisHealthChecker struct {
	pinger Pinger
}

// NewRedisHealthChecker creates a Redis checker
func NewRedisHealthChecker(pinger Pinger) *RedisHealthChecker {
	return &RedisHealthChecker{pinger: pinger}
}

func (c *RedisHealthChecker) Name() string {
	return "redis"
}

func (c *RedisHealthChecker) Check(ctx context.Context) HealthCheckResult {
	if err := c.pinger.Ping(ctx); err != nil {
		return HealthCheckResult{Status: HealthStatusWarn, Error: err.Error()}
	}
	return HealthCheckResult{Status: HealthStatusPass}
}
