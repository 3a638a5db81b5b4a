package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/topology"
)

// Collector owns the Prometheus metrics for builds, include resolution and
// rebuild triggers.
//
// Collector implements topology.Observer so it can be handed directly to a
// compiler with WithObserver.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	buildMetrics   *BuildMetrics
	includeMetrics *IncludeMetrics
	triggerMetrics *TriggerMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	compiler.WithObserver(collector)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "underway"
	}
	if len(cfg.BuildDurationBuckets) == 0 {
		// Builds are local and typically sub-second.
		cfg.BuildDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		buildMetrics:   NewBuildMetrics(cfg, registry),
		includeMetrics: NewIncludeMetrics(cfg, registry),
		triggerMetrics: NewTriggerMetrics(cfg, registry),
	}
}

// RecordBuild records a finished build.
//
// Parameters:
//   - status: "success" or "failure"
//   - errorKind: compile error kind, empty on success or for non-compile failures
//   - duration: wall time of the build
//   - calls: compile steps taken
//   - outputBytes: size of the encoded output, 0 when nothing was written
func (c *Collector) RecordBuild(status, errorKind string, duration time.Duration, calls, outputBytes int) {
	if !c.config.Enabled {
		return
	}
	c.buildMetrics.Record(status, errorKind, duration, calls, outputBytes)
}

// UpdateDocuments sets the number of documents a source produced on its last
// load.
func (c *Collector) UpdateDocuments(source string, count int) {
	if !c.config.Enabled {
		return
	}
	c.includeMetrics.UpdateDocuments(source, count)
}

// IncludeResolved implements topology.Observer.
func (c *Collector) IncludeResolved(ref topology.Reference) {
	if !c.config.Enabled {
		return
	}
	c.includeMetrics.RecordInclude(IncludeForm(ref))
}

// RecordTrigger records a rebuild request from the watcher or the scheduler.
func (c *Collector) RecordTrigger(trigger string) {
	if !c.config.Enabled {
		return
	}
	c.triggerMetrics.RecordTrigger(trigger)
}

// RecordPruned records history entries deleted by retention.
func (c *Collector) RecordPruned(n int64) {
	if !c.config.Enabled {
		return
	}
	c.triggerMetrics.RecordPruned(n)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
