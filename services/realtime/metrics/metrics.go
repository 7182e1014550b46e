package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks synchronizer sessions. A nil *Metrics is a no-op.
type Metrics struct {
	Sessions   prometheus.Gauge
	FeedEvents *prometheus.CounterVec
	Reconciles *prometheus.CounterVec
	Rechecks   prometheus.Counter
}

// New registers the realtime metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_realtime_sessions",
			Help: "Connected synchronizer sessions",
		}),
		FeedEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_realtime_feed_events_total",
			Help: "Feed events by kind and whether they changed the local view (applied, stale, ignored)",
		}, []string{"kind", "result"}),
		Reconciles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_realtime_reconciles_total",
			Help: "Reconciling fetches by result",
		}, []string{"result"}),
		Rechecks: f.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_realtime_rechecks_total",
			Help: "Follow-up reconciles started for rides the last fetch could not confirm",
		}),
	}
}

func (m *Metrics) SessionOpened() {
	if m != nil {
		m.Sessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.Sessions.Dec()
	}
}

// ObserveFeedEvent counts an incoming event of kind ("ride" or "chat")
func (m *Metrics) ObserveFeedEvent(kind, result string) {
	if m != nil {
		m.FeedEvents.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) ObserveReconcile(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Reconciles.WithLabelValues("error").Inc()
		return
	}
	m.Reconciles.WithLabelValues("ok").Inc()
}

func (m *Metrics) ObserveRecheck() {
	if m != nil {
		m.Rechecks.Inc()
	}
}
