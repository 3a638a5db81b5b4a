package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"underway-hq/underway/pkg/build"
	"underway-hq/underway/pkg/cli"
	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/history"
	"underway-hq/underway/pkg/telemetry/logging"
	"underway-hq/underway/pkg/telemetry/metrics"
	"underway-hq/underway/pkg/telemetry/tracing"
	"underway-hq/underway/pkg/world"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "underway",
	Short: "Underway - topology compiler",
	Long: `Underway compiles a set of topology documents into one by expanding
include directives.

A mapping holding an include key is replaced by the named document:

  include: services                   the whole document
  include: services[name: api]        the list element whose name is api
  include: services[name: api][port]  the port field of that element

Documents are read from a directory, a git commit or a SQLite database.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "underway.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// sourceFlags are shared by every command that reads documents.
type sourceFlags struct {
	sourceType string
	path       string
	revision   string
	subdir     string
	maxDepth   int
	variant    string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "source", "s", "", "document directory, git repository or database path")
	cmd.Flags().StringVar(&f.sourceType, "source-type", "", "source type: dir, git, sqlite")
	cmd.Flags().StringVar(&f.revision, "revision", "", "git revision to read (git sources)")
	cmd.Flags().StringVar(&f.subdir, "subdir", "", "directory inside the git tree (git sources)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "ceiling on compile calls")
	cmd.Flags().StringVar(&f.variant, "variant", "", "include semantics: filter, merge")
}

func (f *sourceFlags) apply(cfg *config.Config) {
	if f.sourceType != "" {
		cfg.Source.Type = f.sourceType
	}
	if f.path != "" {
		cfg.Source.Path = f.path
	}
	if f.revision != "" {
		cfg.Source.Revision = f.revision
	}
	if f.subdir != "" {
		cfg.Source.Subdir = f.subdir
	}
	if f.maxDepth != 0 {
		cfg.Compiler.MaxDepth = f.maxDepth
	}
	if f.variant != "" {
		cfg.Compiler.Variant = f.variant
	}
}

// loadConfig loads the config file, lets override adjust it, validates the
// result and installs it as the global configuration and logger.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if override != nil {
		override(cfg)
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	config.SetConfig(cfg)

	if err := setupLogging(cfg, rootCmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, w io.Writer) error {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    w,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()
	return nil
}

func openHistory(cfg *config.Config) (history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	switch cfg.History.Backend {
	case "memory":
		return history.NewMemoryStore(), nil
	case "sqlite":
		return history.NewSQLiteStore(history.SQLiteConfig{Path: cfg.History.Path})
	default:
		return nil, cli.NewConfigError("history.backend", fmt.Sprintf("unsupported backend %q", cfg.History.Backend))
	}
}

// session holds everything a build command needs. Close releases it.
type session struct {
	ctx     context.Context
	cfg     *config.Config
	source  world.Source
	runner  *build.Runner
	history history.Store
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

func newSession(ctx context.Context, cfg *config.Config, out io.Writer) (*session, error) {
	s := &session{ctx: tracing.ContextFromEnv(ctx), cfg: cfg}

	var err error
	s.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	s.source, err = world.New(&cfg.Source)
	if err != nil {
		s.Close()
		return nil, cli.NewConfigError("source", err.Error())
	}

	s.history, err = openHistory(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	s.runner, err = build.NewRunner(s.source, cfg)
	if err != nil {
		s.Close()
		return nil, cli.NewConfigError("compiler", err.Error())
	}
	s.runner.
		WithWriter(out).
		WithMetrics(s.metrics).
		WithTracer(s.tracer).
		WithLogger(slog.Default().With("component", "build"))
	if s.history != nil {
		s.runner.WithHistory(s.history)
	}
	return s, nil
}

func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			slog.Warn("failed to close build history", "error", err)
		}
	}
	if c, ok := s.source.(io.Closer); ok {
		c.Close()
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}
