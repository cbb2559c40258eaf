// Package metrics exposes the Prometheus collectors of the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agenthub"

var (
	// Registry holds every collector of the process.
	Registry = prometheus.NewRegistry()

	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_total",
		Help:      "Dispatched requests by agent type and result status.",
	}, []string{"agent_type", "status"})

	DispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent handling a dispatched request.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"agent_type"})

	BackendRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_retries_total",
		Help:      "Retries of backend calls after a transient failure.",
	}, []string{"backend"})

	BackendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_failures_total",
		Help:      "Backend calls that failed after all attempts, by error code.",
	}, []string{"backend", "code"})
)

func init() {
	Registry.MustRegister(
		DispatchTotal,
		DispatchDuration,
		BackendRetries,
		BackendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveDispatch records one dispatched request.
func ObserveDispatch(agentType, status string, d time.Duration) {
	DispatchTotal.WithLabelValues(agentType, status).Inc()
	DispatchDuration.WithLabelValues(agentType).Observe(d.Seconds())
}

func ObserveRetry(backend string) {
	BackendRetries.WithLabelValues(backend).Inc()
}

func ObserveFailure(backend, code string) {
	BackendFailures.WithLabelValues(backend, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
