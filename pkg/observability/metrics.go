package observability

import (
	"context"

	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Result label values of the transitions counter.
const (
	ResultMounted = "mounted"
	ResultFailed  = "failed"
)

// Metrics holds the collectors fed by the host's lifecycle hooks.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	Unmounts           *prometheus.CounterVec
	UnhandledRoutes    prometheus.Counter
	ScriptsLoaded      *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Application transitions by target application and result.",
			},
			[]string{"app", "result"},
		),
		TransitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_duration_seconds",
				Help:      "Time from the start of an unmount to the end of the next mount.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"app"},
		),
		Unmounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unmounts_total",
				Help:      "Applications unmounted.",
			},
			[]string{"app"},
		),
		UnhandledRoutes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unhandled_routes_total",
				Help:      "Navigations to URLs no application owns.",
			},
		),
		ScriptsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scripts_loaded_total",
				Help:      "Scripts injected into the live document.",
			},
			[]string{"app", "kind"},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Transitions, m.TransitionDuration, m.Unmounts, m.UnhandledRoutes, m.ScriptsLoaded,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnApplicationMounted: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.To, ResultMounted).Inc()
			m.TransitionDuration.WithLabelValues(e.To).Observe(e.Duration.Seconds())
		},
		OnApplicationUnmounted: func(_ context.Context, e *domain.TransitionEvent) {
			m.Unmounts.WithLabelValues(e.From).Inc()
		},
		OnTransitionFailed: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.To, ResultFailed).Inc()
		},
		OnScriptLoaded: func(_ context.Context, e *domain.ScriptEvent) {
			kind := "external"
			if e.Inline {
				kind = "inline"
			}
			m.ScriptsLoaded.WithLabelValues(e.Location, kind).Inc()
		},
		OnUnhandledRoute: func(context.Context, *domain.RouteEvent) {
			m.UnhandledRoutes.Inc()
		},
	}
}
