package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// BuildIDKey is the context key for build IDs.
	BuildIDKey contextKey = "build_id"

	// SourceKey is the context key for the world source name.
	SourceKey contextKey = "source"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// WithBuildID adds a build ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return context.WithValue(ctx, BuildIDKey, buildID)
}

// GetBuildID retrieves the build ID from the context.
func GetBuildID(ctx context.Context) string {
	if id, ok := ctx.Value(BuildIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSource adds the world source name to the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource retrieves the world source name from the context.
func GetSource(ctx context.Context) string {
	if source, ok := ctx.Value(SourceKey).(string); ok {
		return source
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// extractContextFields returns the context's log fields as key-value pairs
// suitable for Logger.With.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if id := GetBuildID(ctx); id != "" {
		fields = append(fields, "build_id", id)
	}
	if source := GetSource(ctx); source != "" {
		fields = append(fields, "source", source)
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}
	return fields
}
