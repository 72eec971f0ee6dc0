package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the account gateway.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	sessionEvents   *prometheus.CounterVec
	authRetries     prometheus.Counter
	snapshotWrites  prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conta_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conta_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conta_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conta_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		sessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conta_session_events_total",
				Help: "Session lifecycle events by kind.",
			},
			[]string{"kind"},
		),
		authRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "conta_auth_retries_total",
				Help: "Authenticated calls retried after a refresh on 401.",
			},
		),
		snapshotWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "conta_snapshot_writes_total",
				Help: "Writes to the persistent profile snapshot.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSessionEvent counts a session lifecycle event by kind.
func (m *Metrics) IncrSessionEvent(kind string) {
	m.sessionEvents.WithLabelValues(kind).Inc()
}

// IncrAuthRetry counts an authenticated call that was retried after a
// refresh triggered by a 401.
func (m *Metrics) IncrAuthRetry() {
	m.authRetries.Inc()
}

// IncrSnapshotWrite counts a persistent snapshot write.
func (m *Metrics) IncrSnapshotWrite() {
	m.snapshotWrites.Inc()
}

// SessionEventCount returns the current counter value for a session event
// kind. Only used by tests and the health endpoint.
func (m *Metrics) SessionEventCount(kind string) float64 {
	return counterValue(m.sessionEvents.WithLabelValues(kind))
}

// AuthRetryCount returns the number of refresh-then-retry cycles so far.
func (m *Metrics) AuthRetryCount() float64 {
	return counterValue(m.authRetries)
}

func counterValue(c prometheus.Counter) float64 {
	pb := &dto.Metric{}
	if err := c.Write(pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
