// Package metrics holds the Prometheus collectors of the analysis engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_engine_runs_total",
			Help: "Analysis runs by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraud_engine_run_duration_seconds",
			Help:    "Wall time of one analysis run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"trigger"},
	)

	ClustersSurfaced = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraud_engine_clusters_surfaced",
		Help: "Clusters above the risk threshold in the last run",
	})

	OutliersFlagged = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fraud_engine_outliers_flagged",
		Help: "Facilities flagged per financial metric in the last run",
	}, []string{"metric"})

	PseudoLabelPositives = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraud_engine_pseudo_label_positives",
		Help: "Facilities the detector ensemble agreed on in the last run",
	})

	AlertsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_engine_alerts_written_total",
		Help: "Fraud alerts inserted into the alert store",
	}, []string{"alert_type"})
)
