package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coach_sessions_active",
		Help: "Coaching sessions currently held in memory",
	})

	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_cycles_total",
		Help: "Capture cycles by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coach_stage_duration_seconds",
		Help:    "Per-stage latency of a capture cycle",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coach_ticks_skipped_total",
		Help: "Auto-capture ticks dropped because a cycle was still in flight",
	})

	DeviceAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_device_acquisitions_total",
		Help: "Camera acquisition attempts by result",
	}, []string{"result"})

	CategoryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_dominant_category_total",
		Help: "Recorded analysis results by dominant category",
	}, []string{"category"})

	StatsRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_stats_refreshes_total",
		Help: "Detector stats refreshes by result",
	}, []string{"result"})
)
