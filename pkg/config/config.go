package config

import "time"

// Config is the root configuration structure for underway.
type Config struct {
	// Source selects where documents are loaded from.
	Source SourceConfig `yaml:"source"`

	// Compiler contains include resolution settings.
	Compiler CompilerConfig `yaml:"compiler"`

	// Output controls where and how the compiled topology is written.
	Output OutputConfig `yaml:"output"`

	// History configures the build history store.
	History HistoryConfig `yaml:"history"`

	// Watch configures rebuilds on file change and on a schedule.
	Watch WatchConfig `yaml:"watch"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SourceConfig selects and configures the document source.
type SourceConfig struct {
	// Type is the source kind.
	// Options: "dir", "git", "sqlite"
	// Default: "dir"
	Type string `yaml:"type"`

	// Path is the directory (dir), repository (git) or database file (sqlite).
	// Default: "./topologies"
	Path string `yaml:"path"`

	// Revision is the git revision to read. Only used when Type is "git".
	// Default: "HEAD"
	Revision string `yaml:"revision"`

	// Subdir is a directory inside the git tree holding the documents.
	// Only used when Type is "git".
	Subdir string `yaml:"subdir"`

	// Extensions restricts which files are loaded by dir and git sources.
	// Default: all known document extensions
	Extensions []string `yaml:"extensions"`
}

// CompilerConfig contains include resolution settings.
type CompilerConfig struct {
	// MaxDepth bounds the total number of compile steps in one build.
	// Default: 10
	MaxDepth int `yaml:"max_depth"`

	// Variant selects include semantics.
	// Options: "filter", "merge"
	// Default: "filter"
	Variant string `yaml:"variant"`
}

// OutputConfig controls the compiled output.
type OutputConfig struct {
	// Path is the file to write. Empty or "-" writes to stdout.
	Path string `yaml:"path"`

	// Format is the output serialization.
	// Options: "yaml", "json", "toml"
	// Default: "yaml"
	Format string `yaml:"format"`
}

// HistoryConfig configures the build history store.
type HistoryConfig struct {
	// Enabled controls whether builds are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is the store implementation.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	// Default: ".underway/history.db"
	Path string `yaml:"path"`

	// Retention is how long entries are kept. Zero keeps them forever.
	// Default: 720h (30 days)
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is the cron expression on which old entries are pruned
	// while watching.
	// Default: "@daily"
	PruneSchedule string `yaml:"prune_schedule"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Files rebuilds when documents in a dir source change.
	// Default: true
	Files bool `yaml:"files"`

	// Debounce is the quiet period after the last file event before a
	// rebuild starts.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`

	// Schedule is a cron expression for periodic rebuilds, for sources such
	// as git or sqlite that cannot be watched. Empty disables it.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "console"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Address is where watch mode serves metrics. Empty disables serving.
	// Example: "127.0.0.1:9090"
	Address string `yaml:"address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "underway"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	Subsystem string `yaml:"subsystem"`

	// BuildDurationBuckets defines histogram buckets for build duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	BuildDurationBuckets []float64 `yaml:"build_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "underway"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
