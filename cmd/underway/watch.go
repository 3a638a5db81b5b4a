package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"underway-hq/underway/pkg/cli"
	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/telemetry/health"
	"underway-hq/underway/pkg/watch"
)

var watchFlags struct {
	source      sourceFlags
	output      string
	format      string
	schedule    string
	metricsAddr string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile whenever the documents change",
	Long: `Compile once, then keep the output current.

Directory sources are watched for file changes. Sources that cannot be
watched, such as git and sqlite, are rebuilt on the cron schedule given by
--schedule or watch.schedule in the config file. A failing build is logged
and the previous output is left in place.

Build history is pruned on history.prune_schedule. With --metrics-addr the
Prometheus metrics are served while watching, together with /healthz,
/readyz and /version probes. /readyz fails while the latest build fails.

Examples:
  underway watch -o build/topology.yaml
  underway watch --source-type git --source . --schedule "*/5 * * * *" -o out.json
  underway watch --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags.source.register(watchCmd)
	watchCmd.Flags().StringVarP(&watchFlags.output, "output", "o", "", "output file (default stdout)")
	watchCmd.Flags().StringVarP(&watchFlags.format, "format", "f", "", "output format: yaml, json, toml")
	watchCmd.Flags().StringVar(&watchFlags.schedule, "schedule", "", "cron schedule for periodic rebuilds")
	watchCmd.Flags().StringVar(&watchFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		watchFlags.source.apply(cfg)
		applyOutputFlags(cfg, watchFlags.output, watchFlags.format)
		if watchFlags.schedule != "" {
			cfg.Watch.Schedule = watchFlags.schedule
		}
		if watchFlags.metricsAddr != "" {
			cfg.Telemetry.Metrics.Address = watchFlags.metricsAddr
		}
	})
	if err != nil {
		return err
	}

	ctx := cli.SetupSignalHandler(cmd.Context())

	s, err := newSession(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	if addr := cfg.Telemetry.Metrics.Address; addr != "" && cfg.Telemetry.Metrics.Enabled {
		srv := serveTelemetry(s, addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	svc := watch.NewService(s.runner, cfg, s.history, s.metrics)
	if err := svc.Run(s.ctx); err != nil {
		if errors.Is(err, watch.ErrNothingToWatch) {
			return cli.NewConfigError("watch.schedule", fmt.Sprintf("%s is not watched for file changes; set a rebuild schedule", s.source.Name()))
		}
		return err
	}
	slog.Info("watch stopped")
	return nil
}

// serveTelemetry serves metrics and the health probes. Readiness follows the
// outcome of the latest build.
func serveTelemetry(s *session, addr string) *http.Server {
	checker := health.New(2 * time.Second)
	checker.RegisterCheck("last_build", func(context.Context) error {
		return s.runner.LastError()
	})
	checker.RegisterCheck("source", func(ctx context.Context) error {
		_, err := s.source.Load(ctx)
		return err
	})

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Telemetry.Metrics.Path, s.metrics.Handler())
	health.Register(mux, checker, Version, GitCommit, BuildDate)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("serving metrics and health probes", "address", addr, "metrics_path", s.cfg.Telemetry.Metrics.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("telemetry server failed", "error", err)
		}
	}()
	return srv
}
