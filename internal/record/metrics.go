package record

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes an OptimizationRecord's running state to a Prometheus
// registry. It is entirely opt-in: a record created without one (New(log,
// nil)) never touches any registry, so unit tests never pollute the default
// global one.
type Metrics struct {
	iterations          prometheus.Counter
	bestLoss            prometheus.Gauge
	constraintViolation prometheus.Gauge
}

// NewMetrics builds and registers a Metrics set on reg, tagging every
// metric with a constant run_id label set to runID so multiple concurrent
// solves on one registry stay distinguishable.
func NewMetrics(reg prometheus.Registerer, runID string) (*Metrics, error) {
	m := &Metrics{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "trajopt_iterations_total",
			Help:        "Number of solver iterations recorded.",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
		bestLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "trajopt_best_loss",
			Help:        "Lowest objective value seen so far.",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
		constraintViolation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "trajopt_max_constraint_violation",
			Help:        "Largest absolute constraint value at the most recent iteration.",
			ConstLabels: prometheus.Labels{"run_id": runID},
		}),
	}
	for _, c := range []prometheus.Collector{m.iterations, m.bestLoss, m.constraintViolation} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(entry Entry, bestLoss float64) {
	m.iterations.Inc()
	m.bestLoss.Set(bestLoss)

	worst := 0.0
	if entry.Constraints != nil {
		for i := 0; i < entry.Constraints.Len(); i++ {
			v := entry.Constraints.AtVec(i)
			if v < 0 {
				v = -v
			}
			if v > worst {
				worst = v
			}
		}
	}
	m.constraintViolation.Set(worst)
}
