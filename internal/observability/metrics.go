package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the execution pipeline.
type Metrics struct {
	OrdersExecuted  *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	EquitySnapshots prometheus.Counter
	FillLatency     prometheus.Histogram
}

// NewMetrics registers the instruments on the given registerer. Pass
// prometheus.DefaultRegisterer in production, a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrader",
			Name:      "orders_executed_total",
			Help:      "Orders accepted by the ledger, by side and fill status.",
		}, []string{"side", "status"}),
		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "papertrader",
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before reaching the ledger, by reason.",
		}, []string{"reason"}),
		EquitySnapshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "papertrader",
			Name:      "equity_snapshots_total",
			Help:      "Daily equity snapshots written, including rewrites.",
		}),
		FillLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "papertrader",
			Name:      "fill_latency_seconds",
			Help:      "Wall time from order receipt to ledger commit.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
