package eval

import (
	"github.com/chazu/grove/pkg/graph"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for graph evaluation. A nil *Metrics
// records nothing.
type Metrics struct {
	pulls        *prometheus.CounterVec // by module kind
	passes       prometheus.Counter
	invalidPorts prometheus.Counter
	cycles       prometheus.Counter
}

// NewMetrics creates the evaluation metrics and registers them with reg.
// A nil reg disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grove",
			Subsystem: "eval",
			Name:      "pulls_total",
			Help:      "Total number of module computations",
		}, []string{"kind"}),

		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grove",
			Subsystem: "eval",
			Name:      "passes_total",
			Help:      "Total number of generation passes begun",
		}),

		invalidPorts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grove",
			Subsystem: "eval",
			Name:      "invalid_ports_total",
			Help:      "Total number of requests for an output port a module does not have",
		}),

		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grove",
			Subsystem: "eval",
			Name:      "cycles_total",
			Help:      "Total number of passes failed by a cyclic graph",
		}),
	}

	for _, c := range []prometheus.Collector{m.pulls, m.passes, m.invalidPorts, m.cycles} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) pull(kind graph.Kind) {
	if m != nil {
		m.pulls.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) pass() {
	if m != nil {
		m.passes.Inc()
	}
}

func (m *Metrics) invalidPort() {
	if m != nil {
		m.invalidPorts.Inc()
	}
}

func (m *Metrics) cycle() {
	if m != nil {
		m.cycles.Inc()
	}
}
