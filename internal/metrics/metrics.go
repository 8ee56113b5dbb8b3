// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tarpush_pipeline_runs_total",
		Help: "Number of archive ingestion runs, by outcome.",
	},
	[]string{
		"outcome", // pushed, partial, not_pushed, nothing_loaded, rejected, engine_unavailable
	},
)

var metricPushes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tarpush_image_pushes_total",
		Help: "Number of tag pushes to the registry, by tag type and status.",
	},
	[]string{
		"type",   // original, latest
		"status", // success, failed
	},
)

var metricStrategy = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tarpush_name_recovery_total",
		Help: "Number of loads whose image names were recovered by a strategy.",
	},
	[]string{
		"strategy",
	},
)

var metricStage = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tarpush_stage_duration_seconds",
		Help:    "Duration of pipeline stages, in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	},
	[]string{
		"stage", // validate, load, push
	},
)

func CountRun(outcome string) {
	metricRuns.WithLabelValues(outcome).Inc()
}

func CountPush(pushType, status string) {
	metricPushes.WithLabelValues(pushType, status).Inc()
}

func CountStrategy(name string) {
	metricStrategy.WithLabelValues(name).Inc()
}

// ObserveStage records the time elapsed since start.
func ObserveStage(stage string, start time.Time) {
	metricStage.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
