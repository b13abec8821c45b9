package payment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	initiations *prometheus.CounterVec
	orphaned    prometheus.Counter
	callbacks   *prometheus.CounterVec
	reconcile   prometheus.Histogram
	settled     *prometheus.CounterVec
	sweeps      *prometheus.CounterVec
}

// NewMetrics registers payment metrics. A nil registerer yields a no-op recorder.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "STK push initiations by result.",
		}, []string{"result"}),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_initiation_orphaned_total",
			Help: "Pushes accepted by the provider whose payment record could not be stored.",
		}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Provider callbacks by reconcile outcome.",
		}, []string{"outcome"}),
		reconcile: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "payment_reconcile_duration_seconds",
			Help:    "Time spent reconciling one callback.",
			Buckets: prometheus.DefBuckets,
		}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_settled_amount_total",
			Help: "Sum of settled payment amounts by final status.",
		}, []string{"status"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_sweeper_actions_total",
			Help: "Records touched by the repair and expiry sweeps.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.initiations, m.orphaned, m.callbacks, m.reconcile, m.settled, m.sweeps)
	return m
}

func (m *Metrics) IncInitiation(result string) {
	if m == nil || m.initiations == nil {
		return
	}
	m.initiations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncOrphaned() {
	if m == nil || m.orphaned == nil {
		return
	}
	m.orphaned.Inc()
}

func (m *Metrics) IncCallback(outcome Outcome) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ObserveReconcile(d time.Duration) {
	if m == nil || m.reconcile == nil {
		return
	}
	m.reconcile.Observe(d.Seconds())
}

func (m *Metrics) AddSettled(status string, amount decimal.Decimal) {
	if m == nil || m.settled == nil {
		return
	}
	m.settled.WithLabelValues(status).Add(amount.InexactFloat64())
}

func (m *Metrics) IncSweep(action string) {
	if m == nil || m.sweeps == nil {
		return
	}
	m.sweeps.WithLabelValues(action).Inc()
}
