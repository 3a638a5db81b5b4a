package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"underway-hq/underway/pkg/config"
)

// TriggerMetrics tracks what caused rebuilds in watch mode and history
// retention.
type TriggerMetrics struct {
	triggersTotal *prometheus.CounterVec
	prunedTotal   prometheus.Counter
}

// NewTriggerMetrics creates trigger metrics registered with the provided registry.
func NewTriggerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TriggerMetrics {
	factory := promauto.With(registry)
	return &TriggerMetrics{
		triggersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rebuild_triggers_total",
				Help:      "Total number of rebuild triggers by origin",
			},
			[]string{"trigger"},
		),
		prunedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "history_pruned_total",
				Help:      "Total number of build history entries removed by retention",
			},
		),
	}
}

// RecordTrigger counts one rebuild trigger.
func (tm *TriggerMetrics) RecordTrigger(trigger string) {
	tm.triggersTotal.WithLabelValues(trigger).Inc()
}

// RecordPruned adds n pruned history entries.
func (tm *TriggerMetrics) RecordPruned(n int64) {
	tm.prunedTotal.Add(float64(n))
}
