package inference

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records inference runs. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	worlds      prometheus.Counter
	duration    prometheus.Histogram
	individuals prometheus.Histogram
}

// NewMetrics creates and registers the inference metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heredity",
			Subsystem: "inference",
			Name:      "runs_total",
			Help:      `The number of inference runs, by result ("ok" or "error").`,
		}, []string{"result"}),
		worlds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heredity",
			Subsystem: "inference",
			Name:      "worlds_total",
			Help:      `The number of worlds scored across all runs.`,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heredity",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help: `The time it takes to run exact inference over a pedigree.

Run time grows exponentially with the number of individuals, so a shift in
this distribution usually means larger pedigrees are being submitted.
`,
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
		}),
		individuals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heredity",
			Subsystem: "inference",
			Name:      "individuals",
			Help:      `The number of individuals per inference run.`,
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(m.runs, m.worlds, m.duration, m.individuals)
	return m
}

func (m *Metrics) observe(err error, individuals int, worlds uint64, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.worlds.Add(float64(worlds))
	m.duration.Observe(elapsed.Seconds())
	m.individuals.Observe(float64(individuals))
}
