package request

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "requesthtml",
			Subsystem: "requests",
			Name:      "created_total",
			Help:      "Requests accepted by the create endpoint.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "requesthtml",
			Subsystem: "request",
			Name:      "transitions_total",
			Help:      "Status transitions applied, by previous and new status.",
		}, []string{"from", "to"}),
	}
	if reg != nil {
		reg.MustRegister(m.created, m.transitions)
	}
	return m
}

func (m *Metrics) Transitions() *prometheus.CounterVec {
	return m.transitions
}

func (m *Metrics) Created() prometheus.Counter {
	return m.created
}

func (m *Metrics) observeCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) observeTransition(from, to Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}
