// Package telemetry groups the observability packages used by underway.
//
//   - logging: slog setup with build and source context fields
//   - metrics: Prometheus counters and histograms for builds, includes and
//     rebuild triggers
//   - tracing: OpenTelemetry spans around builds, exported over OTLP
//   - health: liveness and readiness probes for watch mode
//
// Metrics and probes are only served by the watch command; one-shot commands
// still record metrics so the collector can be inspected in tests.
package telemetry
