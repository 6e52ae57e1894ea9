// Package metrics exposes the kernel's Prometheus instrumentation,
// grounded on the teacher's prometheus/client_golang usage
// (ai/metrics, server/router instrumentation throughout divinesense).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every kernel-level Prometheus collector. A nil
// *Metrics is valid everywhere it is used (see the methods below) so
// instrumentation is always optional for callers that construct a
// Kernel directly in tests.
type Metrics struct {
	ActiveTasks      prometheus.Gauge
	EventsTotal      *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
}

// New creates and registers the kernel's collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rark",
			Name:      "active_tasks",
			Help:      "1 if a task is currently ACTIVE, 0 if the kernel is idle.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rark",
			Name:      "events_total",
			Help:      "Count of control events dispatched by the kernel loop, by event type.",
		}, []string{"type"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rark",
			Name:      "task_transitions_total",
			Help:      "Count of task lifecycle transitions, by target state.",
		}, []string{"state"}),
		RetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rark",
			Name:      "retries_total",
			Help:      "Count of TASK_RETRY events emitted by the skill runner.",
		}),
	}
	reg.MustRegister(m.ActiveTasks, m.EventsTotal, m.TransitionsTotal, m.RetriesTotal)
	return m
}

func (m *Metrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) SetActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.ActiveTasks.Set(1)
	} else {
		m.ActiveTasks.Set(0)
	}
}
