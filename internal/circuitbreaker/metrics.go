package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "citeloc_circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	breakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_circuit_breaker_requests_total",
			Help: "Requests through circuit breaker by state and result",
		},
		[]string{"name", "state", "result"},
	)

	breakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeloc_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// Instrument chains a metrics hook onto the breaker's state-change callback
func Instrument(cfg Config) Config {
	prev := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to State) {
		if prev != nil {
			prev(name, from, to)
		}
		breakerStateChanges.WithLabelValues(name, from.String(), to.String()).Inc()
		breakerState.WithLabelValues(name).Set(float64(to))
	}
	return cfg
}

func recordRequest(name string, state State, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	breakerRequests.WithLabelValues(name, state.String(), result).Inc()
}
