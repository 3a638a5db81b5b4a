package watch

import (
	"context"
	"log/slog"
	"time"

	"underway-hq/underway/pkg/history"
	"underway-hq/underway/pkg/telemetry/metrics"
)

// Pruner deletes build history older than a retention period.
type Pruner struct {
	store     history.Store
	retention time.Duration
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruner creates a pruner. A zero retention keeps history forever.
func NewPruner(store history.Store, retention time.Duration, m *metrics.Collector) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		metrics:   m,
		logger:    slog.Default().With("component", "watch.pruner"),
		now:       time.Now,
	}
}

// Prune deletes entries started before now minus the retention period and
// returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}

	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if p.metrics != nil && deleted > 0 {
		p.metrics.RecordPruned(deleted)
	}

	if deleted > 0 {
		p.logger.Info("build history pruned", "deleted_count", deleted, "cutoff", cutoff)
	} else {
		p.logger.Debug("build history pruned, nothing to delete", "cutoff", cutoff)
	}
	return deleted, nil
}
