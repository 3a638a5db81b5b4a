package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/propagation"
)

// Environment variables carrying W3C trace context into the CLI, as set by
// CI systems that trace their pipelines.
const (
	EnvTraceParent = "TRACEPARENT"
	EnvTraceState  = "TRACESTATE"
)

var envPropagator = propagation.TraceContext{}

// ContextFromEnv returns ctx with the remote span context described by
// TRACEPARENT and TRACESTATE, so build spans join the caller's trace. ctx is
// returned unchanged when TRACEPARENT is unset or invalid.
func ContextFromEnv(ctx context.Context) context.Context {
	return ExtractFromMap(ctx, map[string]string{
		"traceparent": os.Getenv(EnvTraceParent),
		"tracestate":  os.Getenv(EnvTraceState),
	})
}

// ExtractFromMap extracts trace context from a traceparent/tracestate map.
func ExtractFromMap(ctx context.Context, carrier map[string]string) context.Context {
	if carrier["traceparent"] == "" {
		return ctx
	}
	return envPropagator.Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectToMap writes the trace context of ctx into carrier.
func InjectToMap(ctx context.Context, carrier map[string]string) {
	envPropagator.Inject(ctx, propagation.MapCarrier(carrier))
}
