package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facecount_jobs_processed_total",
		Help: "Total number of detection jobs processed, by outcome",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facecount_stage_duration_seconds",
		Help:    "Duration of each detection pipeline stage",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	FacesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facecount_faces_detected_total",
		Help: "Total number of faces accepted across all jobs",
	})

	BoxesRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facecount_boxes_rejected_total",
		Help: "Total number of detector boxes rejected by the heuristic filter",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "facecount_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RelayReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facecount_relay_reconnects_total",
		Help: "Total number of failed relay connection attempts",
	})
)
