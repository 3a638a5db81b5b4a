package logging

import (
	"context"
	"reflect"
	"testing"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if GetBuildID(ctx) != "" || GetSource(ctx) != "" || GetTraceID(ctx) != "" {
		t.Error("empty context returned values")
	}

	ctx = WithBuildID(ctx, "b1")
	ctx = WithSource(ctx, "git:repo@HEAD")
	ctx = WithTraceID(ctx, "t1")

	if got := GetBuildID(ctx); got != "b1" {
		t.Errorf("GetBuildID() = %q, want b1", got)
	}
	if got := GetSource(ctx); got != "git:repo@HEAD" {
		t.Errorf("GetSource() = %q", got)
	}

	want := []any{"build_id", "b1", "source", "git:repo@HEAD", "trace_id", "t1"}
	if got := extractContextFields(ctx); !reflect.DeepEqual(got, want) {
		t.Errorf("extractContextFields() = %v, want %v", got, want)
	}
}
