package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on build spans.
const (
	AttrBuildID     = "underway.build.id"
	AttrSource      = "underway.source"
	AttrDocuments   = "underway.documents"
	AttrCalls       = "underway.compile.calls"
	AttrMaxDepth    = "underway.compile.max_depth"
	AttrVariant     = "underway.compile.variant"
	AttrErrorKind   = "underway.error.kind"
	AttrErrorCode   = "underway.error.code"
	AttrOutputPath  = "underway.output.path"
	AttrOutputBytes = "underway.output.bytes"
)

// SetBuildAttributes records the identity and input of a build.
func SetBuildAttributes(span trace.Span, buildID, source string, documents int) {
	span.SetAttributes(
		attribute.String(AttrBuildID, buildID),
		attribute.String(AttrSource, source),
		attribute.Int(AttrDocuments, documents),
	)
}

// SetCompileAttributes records compiler settings and the steps taken.
func SetCompileAttributes(span trace.Span, variant string, maxDepth, calls int) {
	span.SetAttributes(
		attribute.String(AttrVariant, variant),
		attribute.Int(AttrMaxDepth, maxDepth),
		attribute.Int(AttrCalls, calls),
	)
}

// SetCompileError records the kind and code of a compile error.
func SetCompileError(span trace.Span, kind, code string) {
	span.SetAttributes(
		attribute.String(AttrErrorKind, kind),
		attribute.String(AttrErrorCode, code),
	)
}

// SetOutputAttributes records where the output was written.
func SetOutputAttributes(span trace.Span, path string, size int) {
	span.SetAttributes(
		attribute.String(AttrOutputPath, path),
		attribute.Int(AttrOutputBytes, size),
	)
}
