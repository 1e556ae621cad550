package nn

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts decoded networks and relax outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	DecodedTotal *prometheus.CounterVec
	RelaxTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neat",
			Subsystem: "decoder",
			Name:      "networks_total",
			Help:      "Networks decoded, by kind",
		}, []string{"kind"}),
		RelaxTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neat",
			Subsystem: "decoder",
			Name:      "relax_total",
			Help:      "Relax calls on cyclic networks, by outcome",
		}, []string{"converged"}),
	}
	reg.MustRegister(m.DecodedTotal, m.RelaxTotal)
	return m
}

func (m *Metrics) observeDecode(kind string) {
	if m == nil {
		return
	}
	m.DecodedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeRelax(converged bool) {
	if m == nil {
		return
	}
	m.RelaxTotal.WithLabelValues(strconv.FormatBool(converged)).Inc()
}
