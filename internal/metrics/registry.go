package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/dnc"
)

const namespace = "roc"

// Registry holds the application metrics on a dedicated Prometheus registry
type Registry struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Filter metrics
	contactsProcessed *prometheus.CounterVec
	filterDuration    *prometheus.HistogramVec
	filterRuns        *prometheus.CounterVec

	// Registry metrics
	dncEntries       prometheus.Gauge
	registryVersion  prometheus.Gauge
	snapshotPublish  *prometheus.CounterVec
	campaignsCreated *prometheus.CounterVec
}

// NewRegistry creates the metric set. Go runtime and process collectors are
// registered alongside when withRuntime is set.
func NewRegistry(withRuntime bool) *Registry {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
			[]string{"method", "route"},
		),
		contactsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "filter",
				Name:      "contacts_total",
				Help:      "Contacts seen by the compliance filter, by outcome",
			},
			[]string{"outcome"},
		),
		filterDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "filter",
				Name:      "duration_seconds",
				Help:      "Compliance filter latency",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 20), // 10µs to ~5s
			},
			[]string{"operation"},
		),
		filterRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "filter",
				Name:      "runs_total",
				Help:      "Filter invocations by operation and result",
			},
			[]string{"operation", "result"},
		),
		dncEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dnc",
				Name:      "entries",
				Help:      "Number of entries in the DNC registry",
			},
		),
		registryVersion: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dnc",
				Name:      "registry_version",
				Help:      "Version of the most recent registry snapshot",
			},
		),
		snapshotPublish: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dnc",
				Name:      "snapshot_publish_total",
				Help:      "Snapshot publications to the shared store",
			},
			[]string{"result"},
		),
		campaignsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "campaign",
				Name:      "created_total",
				Help:      "Campaigns created by channel",
			},
			[]string{"channel"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer returns the underlying registry for tests and custom exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordHTTPRequest records one served request
func (r *Registry) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, route, StatusCodeClass(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordFilter records the counters of a completed filtering pass
func (r *Registry) RecordFilter(operation string, allowed, duplicates, blocked int, duration time.Duration) {
	r.contactsProcessed.WithLabelValues("allowed").Add(float64(allowed))
	r.contactsProcessed.WithLabelValues("duplicate").Add(float64(duplicates))
	r.contactsProcessed.WithLabelValues("blocked").Add(float64(blocked))
	r.filterDuration.WithLabelValues(operation).Observe(duration.Seconds())
	r.filterRuns.WithLabelValues(operation, "ok").Inc()
}

// RecordFilterRejected records a pass that ended without a usable result
func (r *Registry) RecordFilterRejected(operation, reason string) {
	r.filterRuns.WithLabelValues(operation, reason).Inc()
}

// SetRegistryState updates the registry gauges after a mutation
func (r *Registry) SetRegistryState(entries int, version int64) {
	r.dncEntries.Set(float64(entries))
	r.registryVersion.Set(float64(version))
}

// RecordSnapshotPublish counts a publication attempt
func (r *Registry) RecordSnapshotPublish(err error) {
	result := "ok"
	switch {
	case dnc.IsStaleSnapshot(err):
		result = "stale"
	case err != nil:
		result = "error"
	}
	r.snapshotPublish.WithLabelValues(result).Inc()
}

// RecordCampaignCreated counts a created campaign
func (r *Registry) RecordCampaignCreated(channel string) {
	r.campaignsCreated.WithLabelValues(channel).Inc()
}

// StatusCodeClass returns the status code class (2xx, 3xx, 4xx, 5xx)
func StatusCodeClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
