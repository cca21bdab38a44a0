package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type CirculationMetrics struct {
	OperationsTotal *prometheus.CounterVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type ReconcileMetrics struct {
	SettledLoansTotal prometheus.Counter
	PassDuration      prometheus.Histogram
}

var (
	Circulation = CirculationMetrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circulation_engine_operations_total",
				Help: "Total number of circulation operations by outcome.",
			},
			[]string{"operation", "status"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "circulation_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Reconcile = ReconcileMetrics{
		SettledLoansTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "circulation_engine_reconciled_loans_total",
				Help: "Total number of matured loans whose stock was put back by the reconciliation job.",
			},
		),
		PassDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "circulation_engine_reconcile_pass_duration_seconds",
				Help:    "Histogram of reconciliation pass durations.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
)

func RecordOperation(operation, status string) {
	Circulation.OperationsTotal.WithLabelValues(operation, status).Inc()
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordReconciledLoans(count int, duration time.Duration) {
	Reconcile.SettledLoansTotal.Add(float64(count))
	Reconcile.PassDuration.Observe(duration.Seconds())
}
