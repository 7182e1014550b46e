package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks matching queries. A nil *Metrics is a no-op.
type Metrics struct {
	Queries       *prometheus.CounterVec
	QueryDuration prometheus.Histogram
	Candidates    prometheus.Histogram
}

// New registers the match metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_match_queries_total",
			Help: "Matching queries by status (ok, no_drivers, configuration_missing, error)",
		}, []string{"status"}),
		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_match_query_duration_seconds",
			Help:    "Duration of a matching query",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Candidates: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_match_eligible_drivers",
			Help:    "Eligible drivers returned per query",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
	}
}

// ObserveQuery records a finished matching query
func (m *Metrics) ObserveQuery(status string, eligible int, start time.Time) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(status).Inc()
	m.QueryDuration.Observe(time.Since(start).Seconds())
	m.Candidates.Observe(float64(eligible))
}
