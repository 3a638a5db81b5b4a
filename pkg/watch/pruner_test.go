package watch

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/history"
	"underway-hq/underway/pkg/telemetry/metrics"
)

func TestPruner_Prune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	store := history.NewMemoryStore()
	for i, age := range []time.Duration{time.Hour, 47 * time.Hour, 49 * time.Hour, 30 * 24 * time.Hour} {
		err := store.Record(ctx, history.Entry{
			ID:        string(rune('a' + i)),
			StartedAt: now.Add(-age),
			Status:    history.StatusSuccess,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, reg)

	p := NewPruner(store, 48*time.Hour, collector)
	p.now = func() time.Time { return now }

	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted %d, want 2", deleted)
	}

	left, _ := store.List(ctx, 0)
	if len(left) != 2 {
		t.Errorf("%d entries left, want 2", len(left))
	}

	if n, err := testutil.GatherAndCount(reg, "underway_history_pruned_total"); err != nil || n != 1 {
		t.Errorf("history_pruned_total series = %d, err = %v", n, err)
	}
}

func TestPruner_ZeroRetention(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	if err := store.Record(ctx, history.Entry{ID: "old", StartedAt: time.Unix(0, 0)}); err != nil {
		t.Fatal(err)
	}

	deleted, err := NewPruner(store, 0, nil).Prune(ctx)
	if err != nil || deleted != 0 {
		t.Errorf("Prune() = %d, %v; want 0, nil", deleted, err)
	}
}
