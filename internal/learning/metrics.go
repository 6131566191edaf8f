package learning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projeval_learning_runs_total",
		Help: "Learning runs by result (success, failed, skipped).",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "projeval_learning_run_duration_seconds",
		Help:    "Wall time of completed learning runs.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	outputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projeval_learning_outputs_total",
		Help: "Rows produced by learning runs, split into created and duplicate.",
	}, []string{"kind", "outcome"})

	alertDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "projeval_alert_deliveries_total",
		Help: "Alert delivery attempts by result (delivered, failed).",
	}, []string{"result"})
)

// recordOutputs created/duplicate split for one output kind
func recordOutputs(kind string, candidates, created int) {
	outputsTotal.WithLabelValues(kind, "created").Add(float64(created))
	if dup := candidates - created; dup > 0 {
		outputsTotal.WithLabelValues(kind, "duplicate").Add(float64(dup))
	}
}
