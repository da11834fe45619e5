package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline counters exported on /metrics.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Generation  prometheus.Histogram
	Exports     *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statreport_submissions_total",
			Help: "Analysis submissions by type and outcome.",
		}, []string{"analysis_type", "outcome"}),
		Generation: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "statreport_report_generation_seconds",
			Help:    "Time spent waiting for the report service.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "statreport_exports_total",
			Help: "Report exports by format.",
		}, []string{"format"}),
	}
}

func (m *Metrics) submission(t, outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(t, outcome).Inc()
}

func (m *Metrics) generation(seconds float64) {
	if m == nil {
		return
	}
	m.Generation.Observe(seconds)
}

func (m *Metrics) export(format string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(format).Inc()
}
