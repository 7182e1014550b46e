package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks ride lifecycle outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	AcceptOutcomes    *prometheus.CounterVec
	AcceptDuration    prometheus.Histogram
	RatingsRecomputed *prometheus.CounterVec
	PendingExpired    prometheus.Counter
}

// New registers the rides metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_ride_transitions_total",
			Help: "Ride state machine operations by operation and result",
		}, []string{"operation", "result"}),
		AcceptOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_ride_accept_total",
			Help: "Accept attempts by outcome (won, taken, invalid, error)",
		}, []string{"outcome"}),
		AcceptDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_ride_accept_duration_seconds",
			Help:    "Duration of the conditional accept write",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RatingsRecomputed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_ratings_recomputed_total",
			Help: "Average rating recomputations by rated party kind",
		}, []string{"party"}),
		PendingExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_rides_expired_total",
			Help: "Pending rides cancelled because nobody accepted them in time",
		}),
	}
}

// ObserveTransition counts a lifecycle operation result
func (m *Metrics) ObserveTransition(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Transitions.WithLabelValues(operation, result).Inc()
}

// ObserveAccept records an accept attempt started at start
func (m *Metrics) ObserveAccept(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.AcceptOutcomes.WithLabelValues(outcome).Inc()
	m.AcceptDuration.Observe(time.Since(start).Seconds())
}

// IncRatingRecomputed counts an average recomputation for party
func (m *Metrics) IncRatingRecomputed(party string) {
	if m == nil {
		return
	}
	m.RatingsRecomputed.WithLabelValues(party).Inc()
}

// AddExpired counts pending rides cancelled by the expiry worker
func (m *Metrics) AddExpired(n int) {
	if m == nil {
		return
	}
	m.PendingExpired.Add(float64(n))
}
