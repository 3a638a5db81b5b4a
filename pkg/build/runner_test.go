package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/history"
	"underway-hq/underway/pkg/telemetry/metrics"
	"underway-hq/underway/pkg/topology"
	"underway-hq/underway/pkg/world"
)

func writeWorld(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

var validWorld = map[string]string{
	"root.yaml": "frontend:\n  include: services[name: web][host]\nbackend:\n  include: services[name: api]\n",
	"services.yaml": `- name: web
  host: web.internal
- name: api
  host: api.internal
  replicas: 2
`,
}

func newRunner(t *testing.T, dir string, mutate func(*config.Config)) (*Runner, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Format = "json"
	if mutate != nil {
		mutate(cfg)
	}
	r, err := NewRunner(world.NewDirSource(dir, nil), cfg)
	if err != nil {
		t.Fatalf("NewRunner() failed: %v", err)
	}
	var buf bytes.Buffer
	r.WithWriter(&buf)
	return r, &buf
}

func TestRunner_BuildToWriter(t *testing.T) {
	r, buf := newRunner(t, writeWorld(t, validWorld), nil)

	res, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	want := topology.MappingOf(
		"frontend", topology.String("web.internal"),
		"backend", topology.MappingOf("name", topology.String("api"), "host", topology.String("api.internal"), "replicas", topology.Int(2)),
	)
	if !topology.Equal(res.Output, want) {
		t.Errorf("Output = %v, want %v", topology.ToValue(res.Output), topology.ToValue(want))
	}
	if res.Documents != 2 {
		t.Errorf("Documents = %d, want 2", res.Documents)
	}
	if res.Calls == 0 {
		t.Error("Calls should be counted")
	}
	if len(res.Digest) != 64 {
		t.Errorf("Digest = %q, want hex sha256", res.Digest)
	}
	if !bytes.Equal(buf.Bytes(), res.Data) {
		t.Errorf("writer got %q, want %q", buf.String(), res.Data)
	}
	if !strings.HasPrefix(buf.String(), `{`) || !strings.Contains(buf.String(), `"frontend": "web.internal"`) {
		t.Errorf("unexpected JSON output: %s", buf.String())
	}
}

func TestRunner_BuildToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "topology.yaml")
	r, buf := newRunner(t, writeWorld(t, validWorld), func(cfg *config.Config) {
		cfg.Output.Path = out
		cfg.Output.Format = "yaml"
	})

	res, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("writer should be unused when an output path is set, got %q", buf.String())
	}

	got, err := document.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !topology.Equal(got, res.Output) {
		t.Errorf("file content = %v, want %v", topology.ToValue(got), topology.ToValue(res.Output))
	}
}

func TestRunner_Check(t *testing.T) {
	out := filepath.Join(t.TempDir(), "topology.json")
	r, buf := newRunner(t, writeWorld(t, validWorld), func(cfg *config.Config) {
		cfg.Output.Path = out
	})

	res, err := r.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if res.Output == nil {
		t.Error("Check() should return the compiled output")
	}
	if res.Data != nil || res.Digest != "" {
		t.Error("Check() should not encode output")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("Check() wrote %s", out)
	}
	if buf.Len() != 0 {
		t.Errorf("Check() wrote to the writer: %q", buf.String())
	}
}

func TestRunner_CompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		mutate func(*config.Config)
		kind   topology.ErrorKind
	}{
		{
			name:  "missing root",
			files: map[string]string{"other.yaml": "a: 1\n"},
			kind:  topology.MissingRoot,
		},
		{
			name:  "include not found",
			files: map[string]string{"root.yaml": "a:\n  include: nowhere\n"},
			kind:  topology.IncludeNotFound,
		},
		{
			name: "filter no match",
			files: map[string]string{
				"root.yaml":     "a:\n  include: services[name: db]\n",
				"services.yaml": "- name: web\n",
			},
			kind: topology.FilterNoMatch,
		},
		{
			name: "recursion limit",
			files: map[string]string{
				"root.yaml": "a:\n  include: loop\n",
				"loop.yaml": "b:\n  include: loop\n",
			},
			kind: topology.RecursionLimitExceeded,
		},
		{
			name:  "merge variant rejects extraction",
			files: map[string]string{"root.yaml": "a:\n  include: services[port]\n", "services.yaml": "port: 1\n"},
			mutate: func(cfg *config.Config) {
				cfg.Compiler.Variant = "merge"
			},
			kind: topology.IncludeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newRunner(t, writeWorld(t, tt.files), tt.mutate)

			res, err := r.Build(context.Background())
			if err == nil {
				t.Fatal("Build() should fail")
			}
			if !topology.IsKind(err, tt.kind) {
				t.Errorf("Build() error = %v, want kind %s", err, tt.kind)
			}
			if res == nil || res.Succeeded() {
				t.Error("result should record the failure")
			}
			if buf.Len() != 0 {
				t.Errorf("failed build wrote output: %q", buf.String())
			}
		})
	}
}

func TestRunner_SourceError(t *testing.T) {
	r, _ := newRunner(t, filepath.Join(t.TempDir(), "missing"), nil)

	_, err := r.Build(context.Background())
	if err == nil {
		t.Fatal("Build() should fail for a missing directory")
	}
	if _, ok := topology.KindOf(err); ok {
		t.Errorf("load failure should not be a compile error: %v", err)
	}
}

func TestRunner_FreshBudgetPerBuild(t *testing.T) {
	r, _ := newRunner(t, writeWorld(t, validWorld), func(cfg *config.Config) {
		cfg.Compiler.MaxDepth = 4
	})

	for i := 0; i < 3; i++ {
		if _, err := r.Build(context.Background()); err != nil {
			t.Fatalf("build %d failed: %v", i, err)
		}
	}
}

func TestRunner_RecordsHistory(t *testing.T) {
	store := history.NewMemoryStore()
	dir := writeWorld(t, validWorld)
	r, _ := newRunner(t, dir, nil)
	r.WithHistory(store)

	ok, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "root.yaml"), []byte("a:\n  include: nowhere\n"), 0644); err != nil {
		t.Fatal(err)
	}
	failed, _ := r.Build(context.Background())

	entries, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	last := entries[0]
	if last.ID != failed.ID || last.Succeeded() {
		t.Errorf("newest entry = %+v, want failed build %s", last, failed.ID)
	}
	if last.ErrorKind != string(topology.IncludeNotFound) || last.ErrorCode != topology.IncludeNotFound.Code() {
		t.Errorf("failure entry kind/code = %s/%s", last.ErrorKind, last.ErrorCode)
	}

	first := entries[1]
	if first.ID != ok.ID || !first.Succeeded() || first.OutputDigest != ok.Digest {
		t.Errorf("oldest entry = %+v, want successful build %s", first, ok.ID)
	}
}

func TestRunner_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, reg)

	r, _ := newRunner(t, writeWorld(t, validWorld), nil)
	r.WithMetrics(collector)

	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	for _, name := range []string{
		"underway_builds_total",
		"underway_includes_total",
		"underway_documents",
	} {
		if n, err := testutil.GatherAndCount(reg, name); err != nil || n == 0 {
			t.Errorf("%s: count=%d err=%v", name, n, err)
		}
	}
}

func TestNewRunner_Errors(t *testing.T) {
	cfg := config.Default()
	if _, err := NewRunner(nil, cfg); err == nil {
		t.Error("NewRunner(nil) should fail")
	}

	cfg.Compiler.Variant = "bogus"
	if _, err := NewRunner(world.NewDirSource(t.TempDir(), nil), cfg); err == nil {
		t.Error("NewRunner() should reject an unknown variant")
	}

	cfg = config.Default()
	cfg.Output.Format = "ini"
	if _, err := NewRunner(world.NewDirSource(t.TempDir(), nil), cfg); err == nil {
		t.Error("NewRunner() should reject an unknown format")
	}
}

func TestRunner_LastError(t *testing.T) {
	dir := writeWorld(t, validWorld)
	r, _ := newRunner(t, dir, nil)

	if err := r.LastError(); !errors.Is(err, ErrNoBuild) {
		t.Errorf("LastError() before any build = %v, want ErrNoBuild", err)
	}

	if _, err := r.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.LastError(); err != nil {
		t.Errorf("LastError() after success = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "root.yaml"), []byte("a:\n  include: gone\n"), 0644); err != nil {
		t.Fatal(err)
	}
	failed, _ := r.Build(context.Background())
	if err := r.LastError(); !topology.IsKind(err, topology.IncludeNotFound) {
		t.Errorf("LastError() after failure = %v", err)
	}
	if r.Last() != failed {
		t.Error("Last() should return the latest result")
	}
}
