package observability

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the supervisor collectors.
type Metrics struct {
	Routes      *prometheus.CounterVec
	Dispatches  *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	Transitions *prometheus.CounterVec
	Turns       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_routes_total",
				Help: "Routing decisions by source, confidence and worker.",
			},
			[]string{"source", "confidence", "worker"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_dispatches_total",
				Help: "Worker dispatches by worker and outcome.",
			},
			[]string{"worker", "outcome", "redirect"},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "furrow_dispatch_duration_seconds",
				Help:    "Worker dispatch latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"worker"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_state_transitions_total",
				Help: "State machine transitions.",
			},
			[]string{"from", "to"},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_turns_total",
				Help: "Finished turns by final state.",
			},
			[]string{"state"},
		),
	}
	for _, c := range []prometheus.Collector{m.Routes, m.Dispatches, m.Latency, m.Transitions, m.Turns} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			m.Transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
			if e.To == domain.StateDone || e.To == domain.StateError {
				m.Turns.WithLabelValues(string(e.To)).Inc()
			}
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			m.Routes.WithLabelValues(
				string(e.Decision.Source),
				string(e.Decision.Confidence),
				e.Decision.Worker().String(),
			).Inc()
		},
		OnResult: func(_ context.Context, e *domain.DispatchEvent) {
			if e.Result == nil {
				return
			}
			outcome := "success"
			if !e.Result.Success {
				outcome = string(e.Result.ErrorKind)
			}
			redirect := "false"
			if e.Redirect {
				redirect = "true"
			}
			m.Dispatches.WithLabelValues(e.Worker.String(), outcome, redirect).Inc()
			m.Latency.WithLabelValues(e.Worker.String()).Observe(e.Duration.Seconds())
		},
	}
}
