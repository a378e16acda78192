package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bot's prometheus collectors. One instance is shared by
// the workflow service and the commerce adapter.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsPublished prometheus.Counter
	SessionsCancelled prometheus.Counter
	SessionsFailed    prometheus.Counter
	BackendRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers the bot metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "sessions_started_total",
			Help:      "Workflow sessions opened by a valid host post.",
		}),
		SessionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "sessions_published_total",
			Help:      "Sessions that ended with a successful publish.",
		}),
		SessionsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "sessions_cancelled_total",
			Help:      "Sessions cancelled by the host.",
		}),
		SessionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "sessions_failed_total",
			Help:      "Sessions whose publish failed after confirmation.",
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockbot",
			Name:      "backend_requests_total",
			Help:      "Commerce backend calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	reg.MustRegister(
		m.SessionsStarted,
		m.SessionsPublished,
		m.SessionsCancelled,
		m.SessionsFailed,
		m.BackendRequests,
	)
	return m
}

// NewNopMetrics creates unregistered metrics for tests.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
