package insight

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_detections_total",
		Help: "Total number of rule matches by alert type",
	}, []string{"alert_type"})

	alertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_alerts_created_total",
		Help: "Total number of alerts persisted by type",
	}, []string{"alert_type"})

	alertsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_alerts_deduplicated_total",
		Help: "Total number of alerts skipped because an active one already exists",
	}, []string{"alert_type"})

	recommendationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_recommendations_created_total",
		Help: "Total number of exercise recommendations persisted by alert type",
	}, []string{"alert_type"})

	recommendationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tandem_recommendations_completed_total",
		Help: "Total number of recommendations completed by exercise sessions",
	})

	// storeFailures counts fail-open record store errors by operation.
	storeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tandem_store_failures_total",
		Help: "Total number of record store failures handled by the engine",
	}, []string{"op"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tandem_pipeline_duration_seconds",
		Help:    "Full detect-alert-recommend pipeline latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
)
