package observability

import (
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric.
const Namespace = "flowstack"

// Metrics is a listener that records execution lifecycle counters.
// ActiveExecutions is a process-local gauge: executions restored from a store and
// aborted through the executor are not reflected in it.
type Metrics struct {
	StartedTotal     *prometheus.CounterVec
	EndedTotal       *prometheus.CounterVec
	EventsTotal      *prometheus.CounterVec
	TransitionsTotal *prometheus.CounterVec
	SubflowsTotal    *prometheus.CounterVec
	PausesTotal      *prometheus.CounterVec
	ActiveExecutions prometheus.Gauge
}

var _ domain.Listener = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StartedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "executions_started_total",
			Help:      "Root flow sessions started.",
		}, []string{"flow"}),
		EndedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "executions_ended_total",
			Help:      "Root flow sessions ended.",
		}, []string{"flow", "state"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Events signaled, by active flow. Includes subflow end ids signaled into the parent.",
		}, []string{"flow", "event"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "state_transitions_total",
			Help:      "State entries, by flow and target state.",
		}, []string{"flow", "state"}),
		SubflowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "subflows_spawned_total",
			Help:      "Subflow sessions spawned.",
		}, []string{"flow"}),
		PausesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pauses_total",
			Help:      "Executions paused waiting for an external event.",
		}, []string{"flow", "view"}),
		ActiveExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_executions",
			Help:      "Executions started and not yet ended by this process.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNewMetrics is like NewMetrics but panics on registration errors.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.StartedTotal, m.EndedTotal, m.EventsTotal, m.TransitionsTotal,
		m.SubflowsTotal, m.PausesTotal, m.ActiveExecutions,
	}
}

func (m *Metrics) Started(_ *domain.RequestContext, s *domain.FlowSession) {
	m.StartedTotal.WithLabelValues(s.FlowID()).Inc()
	m.ActiveExecutions.Inc()
}

func (m *Metrics) EventSignaled(rc *domain.RequestContext, ev domain.Event) {
	m.EventsTotal.WithLabelValues(rc.Stack().ActiveFlowID(), ev.ID).Inc()
}

func (m *Metrics) StateTransitioned(_ *domain.RequestContext, _, next *domain.State) {
	if next == nil {
		return
	}
	flowID := ""
	if next.Flow() != nil {
		flowID = next.Flow().ID
	}
	m.TransitionsTotal.WithLabelValues(flowID, next.ID).Inc()
}

func (m *Metrics) SubflowSpawned(_ *domain.RequestContext, s *domain.FlowSession) {
	m.SubflowsTotal.WithLabelValues(s.FlowID()).Inc()
}

func (m *Metrics) SubflowEnded(*domain.RequestContext, *domain.FlowSession) {}

func (m *Metrics) Paused(rc *domain.RequestContext, sel domain.ViewSelection) {
	m.PausesTotal.WithLabelValues(rc.Stack().ActiveFlowID(), sel.ViewName).Inc()
}

func (m *Metrics) Resumed(*domain.RequestContext, *domain.FlowSession) {}

func (m *Metrics) Ended(_ *domain.RequestContext, s *domain.FlowSession) {
	m.EndedTotal.WithLabelValues(s.FlowID(), s.StateID()).Inc()
	m.ActiveExecutions.Dec()
}
