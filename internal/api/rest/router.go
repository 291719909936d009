package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"

	campaignservice "github.com/davidleathers/outreach-compliance-backend/internal/service/campaign"
	dncservice "github.com/davidleathers/outreach-compliance-backend/internal/service/dnc"
)

// Config holds API configuration
type Config struct {
	Version          string
	MaxBodyBytes     int64
	ContractChecking bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Version:          "v1",
		MaxBodyBytes:     10 << 20,
		ContractChecking: true,
	}
}

// MetricsRegistry serves Prometheus metrics and records HTTP observations
type MetricsRegistry interface {
	HTTPMetrics
	Handler() http.Handler
}

// Dependencies are the services the router exposes
type Dependencies struct {
	DNC         dncservice.Service
	Campaigns   campaignservice.Service
	Health      *HealthService
	Metrics     MetricsRegistry
	RateLimiter *RateLimiter
	Logger      *slog.Logger
}

type route struct {
	method  string
	path    string
	status  int
	handler HandlerFunc
}

// NewRouter builds the HTTP handler with every route and the middleware chain
func NewRouter(config Config, deps Dependencies) (http.Handler, error) {
	if deps.DNC == nil || deps.Campaigns == nil {
		return nil, fmt.Errorf("router requires dnc and campaign services")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseHandler(logger, config.Version, config.MaxBodyBytes)
	mux := http.NewServeMux()

	var recorder HTTPMetrics
	if deps.Metrics != nil {
		recorder = deps.Metrics
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	var routes []route
	routes = append(routes, NewDNCHandler(base, deps.DNC).routes()...)
	routes = append(routes, NewCampaignHandler(base, deps.Campaigns).routes()...)
	for _, rt := range routes {
		pattern := rt.method + " " + rt.path
		mux.Handle(pattern, instrument(recorder, rt.method, rt.path,
			base.WrapHandler(rt.method, rt.path, rt.status, rt.handler)))
	}

	if deps.Health != nil {
		mux.Handle("GET /health", deps.Health.LivenessHandler())
		mux.Handle("GET /ready", deps.Health.ReadinessHandler())
	}
	mux.HandleFunc("GET /api/v1/openapi", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openAPIDocument)
	})

	middlewares := []Middleware{
		RecoveryMiddleware(logger),
		SecurityHeadersMiddleware(),
		RequestIDMiddleware(),
		TracingMiddleware(otel.GetTextMapPropagator()),
		RequestLoggingMiddleware(logger),
	}
	if deps.RateLimiter != nil {
		middlewares = append(middlewares, deps.RateLimiter.Middleware())
	}
	middlewares = append(middlewares, BodyLimitMiddleware(config.MaxBodyBytes))
	if config.ContractChecking {
		validator, err := NewContractValidator()
		if err != nil {
			return nil, err
		}
		middlewares = append(middlewares,
			ContractValidationMiddleware(validator, DefaultContractValidationConfig(), logger))
	}

	return NewMiddlewareChain(middlewares...).Then(mux), nil
}
