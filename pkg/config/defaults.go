package config

import "time"

// Default values for configuration fields.
const (
	// Source defaults
	DefaultSourceType     = "dir"
	DefaultSourcePath     = "./topologies"
	DefaultSourceRevision = "HEAD"

	// Compiler defaults
	DefaultMaxDepth = 10
	DefaultVariant  = "filter"

	// Output defaults
	DefaultOutputFormat = "yaml"

	// History defaults
	DefaultHistoryEnabled       = true
	DefaultHistoryBackend       = "sqlite"
	DefaultHistoryPath          = ".underway/history.db"
	DefaultHistoryRetention     = 30 * 24 * time.Hour
	DefaultHistoryPruneSchedule = "@daily"

	// Watch defaults
	DefaultWatchFiles    = true
	DefaultWatchDebounce = 200 * time.Millisecond

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "console"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "underway"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingService     = "underway"
	DefaultOTLPInsecure       = true
	DefaultOTLPTimeout        = 10 * time.Second
)

// Default returns a configuration with every default applied, including
// boolean fields whose default is true. Files are decoded on top of it so
// that keys absent from the file keep their default.
func Default() *Config {
	cfg := &Config{
		History: HistoryConfig{Enabled: DefaultHistoryEnabled},
		Watch:   WatchConfig{Files: DefaultWatchFiles},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{OTLP: OTLPConfig{Insecure: DefaultOTLPInsecure}},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for fields that have zero values.
// It is idempotent. Boolean fields are left alone; see Default.
func ApplyDefaults(cfg *Config) {
	if cfg.Source.Type == "" {
		cfg.Source.Type = DefaultSourceType
	}
	if cfg.Source.Path == "" {
		cfg.Source.Path = DefaultSourcePath
	}
	if cfg.Source.Type == "git" && cfg.Source.Revision == "" {
		cfg.Source.Revision = DefaultSourceRevision
	}

	if cfg.Compiler.MaxDepth == 0 {
		cfg.Compiler.MaxDepth = DefaultMaxDepth
	}
	if cfg.Compiler.Variant == "" {
		cfg.Compiler.Variant = DefaultVariant
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.Retention == 0 {
		cfg.History.Retention = DefaultHistoryRetention
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.Sampler == "ratio" && cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
