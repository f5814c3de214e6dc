// Package metrics exposes dialog activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dialog instruments.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	transitions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	hookDuration    *prometheus.HistogramVec
	hookErrors      *prometheus.CounterVec
	reloads         *prometheus.CounterVec
}

// New creates the instruments on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_sessions_started_total",
			Help: "Dialogs started, by whether a previous session had expired.",
		}, []string{"expired"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_sessions_ended_total",
			Help: "Dialogs ended, by reason.",
		}, []string{"reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ussd_sessions_active",
			Help: "Dialogs started and not yet ended by this process.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_transitions_total",
			Help: "Transitions taken, by target state.",
		}, []string{"to", "kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_input_rejections_total",
			Help: "Inputs refused, by state and reason.",
		}, []string{"state", "reason"}),
		hookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ussd_hook_duration_seconds",
			Help:    "Duration of business hook calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"hook"}),
		hookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_hook_errors_total",
			Help: "Failed business hook calls.",
		}, []string{"hook"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_automaton_reloads_total",
			Help: "Automaton reload attempts, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsEnded,
		m.activeSessions,
		m.transitions,
		m.rejections,
		m.hookDuration,
		m.hookErrors,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReload records the outcome of an automaton reload.
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Hooks returns lifecycle hooks feeding the instruments.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			expired := "false"
			if e.Expired {
				expired = "true"
			}
			m.sessionsStarted.WithLabelValues(expired).Inc()
			m.activeSessions.Inc()
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsEnded.WithLabelValues(e.Reason).Inc()
			m.activeSessions.Dec()
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			kind := "input"
			switch {
			case e.Error:
				kind = "error"
			case e.Fallback:
				kind = "fallback"
			}
			m.transitions.WithLabelValues(e.To, kind).Inc()
		},
		OnInputRejected: func(_ context.Context, e *domain.RejectionEvent) {
			m.rejections.WithLabelValues(e.StateID, e.Reason).Inc()
		},
		OnHookCall: func(_ context.Context, e *domain.HookEvent) {
			m.hookDuration.WithLabelValues(e.Hook).Observe(e.Duration.Seconds())
			if e.IsError {
				m.hookErrors.WithLabelValues(e.Hook).Inc()
			}
		},
	}
}
