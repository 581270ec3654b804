package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RouteDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "route_decisions_total",
		Help:      "Route guard decisions by outcome.",
	}, []string{"decision"})

	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "auth_attempts_total",
		Help:      "Auth flow operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "session_events_total",
		Help:      "Provider auth-state events applied to sessions.",
	}, []string{"event"})

	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "portal",
		Name:      "active_clients",
		Help:      "Browser clients currently held in memory.",
	})

	FunctionCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "function_calls_total",
		Help:      "Remote function invocations by function and outcome.",
	}, []string{"function", "outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
