package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"underway-hq/underway/pkg/config"
)

// BuildMetrics tracks build outcomes.
//
// Metrics:
//   - underway_builds_total: builds by status and error kind
//   - underway_build_duration_seconds: build wall time
//   - underway_compile_calls: compile steps per build
//   - underway_output_bytes: size of the last written output
//   - underway_last_success_timestamp_seconds: time of the last successful build
type BuildMetrics struct {
	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	compileCalls  prometheus.Histogram
	outputBytes   prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// NewBuildMetrics creates and registers build metrics with the provided registry.
func NewBuildMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BuildMetrics {
	bm := &BuildMetrics{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "builds_total",
				Help:      "Total number of topology builds",
			},
			[]string{"status", "error_kind"},
		),

		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "build_duration_seconds",
				Help:      "Duration of topology builds in seconds",
				Buckets:   cfg.BuildDurationBuckets,
			},
		),

		compileCalls: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "compile_calls",
				Help:      "Number of compile steps taken per build",
				Buckets:   prometheus.LinearBuckets(1, 2, 10),
			},
		),

		outputBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "output_bytes",
				Help:      "Size in bytes of the last written compiled topology",
			},
		),

		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful build",
			},
		),
	}

	registry.MustRegister(
		bm.buildsTotal,
		bm.buildDuration,
		bm.compileCalls,
		bm.outputBytes,
		bm.lastSuccess,
	)

	return bm
}

// Record records one finished build.
func (bm *BuildMetrics) Record(status, errorKind string, duration time.Duration, calls, outputBytes int) {
	bm.buildsTotal.WithLabelValues(status, errorKind).Inc()
	bm.buildDuration.Observe(duration.Seconds())
	bm.compileCalls.Observe(float64(calls))
	if status == "success" {
		bm.lastSuccess.SetToCurrentTime()
		if outputBytes > 0 {
			bm.outputBytes.Set(float64(outputBytes))
		}
	}
}
