package neat

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "neat"

// Metrics holds the Prometheus collectors updated by reproduction, speciation and the
// generation driver. A nil *Metrics is valid; every method is then a no-op.
type Metrics struct {
	OffspringTotal     *prometheus.CounterVec
	SpeciationIters    prometheus.Counter
	SpeciesCount       prometheus.Gauge
	BestFitness        prometheus.Gauge
	MeanComplexity     prometheus.Gauge
	GenerationsTotal   prometheus.Counter
	EvaluationFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OffspringTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "reproduction",
				Name:      "offspring_total",
				Help:      "Offspring created, by reproduction kind",
			},
			[]string{"kind"},
		),
		SpeciationIters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "speciation",
			Name:      "kmeans_iterations_total",
			Help:      "k-means iterations run by speciation",
		}),
		SpeciesCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "speciation",
			Name:      "species_count",
			Help:      "Non-empty species after the last speciation",
		}),
		BestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "population",
			Name:      "best_fitness",
			Help:      "Best primary fitness of the current generation",
		}),
		MeanComplexity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "population",
			Name:      "mean_complexity",
			Help:      "Mean genome complexity of the current generation",
		}),
		GenerationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "population",
			Name:      "generations_total",
			Help:      "Generations completed",
		}),
		EvaluationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "population",
			Name:      "evaluation_failures_total",
			Help:      "Genomes whose fitness evaluation returned an error",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.OffspringTotal,
			m.SpeciationIters,
			m.SpeciesCount,
			m.BestFitness,
			m.MeanComplexity,
			m.GenerationsTotal,
			m.EvaluationFailures,
		)
	}
	return m
}

func (m *Metrics) observeOffspring(kind string) {
	if m == nil {
		return
	}
	m.OffspringTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeSpeciation(iterations, speciesCount int) {
	if m == nil {
		return
	}
	m.SpeciationIters.Add(float64(iterations))
	m.SpeciesCount.Set(float64(speciesCount))
}

func (m *Metrics) observeGeneration(stats RunStats, evalFailures int) {
	if m == nil {
		return
	}
	m.GenerationsTotal.Inc()
	m.BestFitness.Set(stats.BestFitness)
	m.MeanComplexity.Set(stats.MeanComplexity)
	m.EvaluationFailures.Add(float64(evalFailures))
}
