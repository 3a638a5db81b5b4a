package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"underway-hq/underway/pkg/build"
	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/history"
	"underway-hq/underway/pkg/telemetry/metrics"
	"underway-hq/underway/pkg/world"
)

// Rebuild triggers, used as metric label values.
const (
	TriggerInitial  = "initial"
	TriggerFile     = "file"
	TriggerSchedule = "schedule"
)

// Job names registered with the scheduler.
const (
	JobRebuild = "rebuild"
	JobPrune   = "prune"
)

// ErrNothingToWatch is returned when the source cannot be watched and no
// rebuild schedule is configured.
var ErrNothingToWatch = errors.New("source cannot be watched for changes and no rebuild schedule is configured")

// Service keeps an output topology up to date, rebuilding when documents
// change or on a schedule.
type Service struct {
	runner    *build.Runner
	cfg       *config.Config
	history   history.Store
	metrics   *metrics.Collector
	logger    *slog.Logger
	scheduler *Scheduler
	watcher   *FileWatcher
}

// NewService creates a watch service. history and m may be nil.
func NewService(runner *build.Runner, cfg *config.Config, store history.Store, m *metrics.Collector) *Service {
	return &Service{
		runner:    runner,
		cfg:       cfg,
		history:   store,
		metrics:   m,
		logger:    slog.Default().With("component", "watch"),
		scheduler: NewScheduler(),
	}
}

// WithLogger sets the logger used by the service, its watcher and scheduled
// jobs.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.logger = l
	return s
}

// Run builds once, then rebuilds on every trigger until ctx is cancelled.
// A failing build is logged by the runner and does not stop the service.
func (s *Service) Run(ctx context.Context) error {
	if err := s.setup(); err != nil {
		return err
	}

	s.rebuild(ctx, TriggerInitial)

	s.scheduler.Start(ctx)
	defer s.scheduler.Stop()

	if s.watcher == nil {
		<-ctx.Done()
		return nil
	}
	defer s.watcher.Stop()
	return s.watcher.Watch(ctx, func() error {
		s.rebuild(ctx, TriggerFile)
		return nil
	})
}

func (s *Service) setup() (err error) {
	if dir, ok := s.runner.Source().(*world.DirSource); ok && s.cfg.Watch.Files {
		fw, werr := NewFileWatcher(&FileWatcherConfig{
			Dir:              dir.Path(),
			DebounceInterval: s.cfg.Watch.Debounce,
			Extensions:       dir.Extensions(),
		}, s.logger)
		if werr != nil {
			return fmt.Errorf("failed to watch %s: %w", dir.Path(), werr)
		}
		s.watcher = fw
		defer func() {
			if err != nil {
				fw.Stop()
				s.watcher = nil
			}
		}()
	}

	err = s.scheduler.Add(JobRebuild, s.cfg.Watch.Schedule, func(ctx context.Context) {
		s.rebuild(ctx, TriggerSchedule)
	})
	if err != nil {
		return err
	}

	if s.history != nil {
		pruner := NewPruner(s.history, s.cfg.History.Retention, s.metrics)
		err = s.scheduler.Add(JobPrune, s.cfg.History.PruneSchedule, func(ctx context.Context) {
			if _, err := pruner.Prune(ctx); err != nil {
				s.logger.Error("scheduled pruning failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	if s.watcher == nil && s.cfg.Watch.Schedule == "" {
		return ErrNothingToWatch
	}
	return nil
}

// rebuild runs one build. The runner logs and records the outcome, so the
// error is not reported again here.
func (s *Service) rebuild(ctx context.Context, trigger string) {
	if s.metrics != nil {
		s.metrics.RecordTrigger(trigger)
	}
	s.runner.Build(ctx)
}

// Scheduler returns the service's scheduler.
func (s *Service) Scheduler() *Scheduler {
	return s.scheduler
}
