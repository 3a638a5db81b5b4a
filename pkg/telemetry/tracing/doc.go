// Package tracing provides OpenTelemetry tracing for builds.
//
// Each build runs in a "topology.build" span carrying the build ID, source,
// compiler settings and outcome. Spans are exported over OTLP/gRPC. When the
// CLI runs with TRACEPARENT set, ContextFromEnv makes the build span a child
// of that remote span.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
//	ctx, span := tracer.Start(tracing.ContextFromEnv(ctx), "topology.build")
//	defer span.End()
package tracing
