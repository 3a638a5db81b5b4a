package world

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/topology"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDirSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"root.yaml":       "app:\n  include: services\n",
		"services.json":   `[{"name": "api"}]`,
		"limits.toml":     "max = 3\n",
		"README.md":       "ignored",
		".hidden.yaml":    "x: 1\n",
		"nested/sub.yaml": "y: 2\n",
	})

	src := NewDirSource(dir, nil)
	w, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(w) != 3 {
		t.Fatalf("Load() returned %d documents, want 3: %v", len(w), w)
	}
	for _, name := range []string{"root", "services", "limits"} {
		if _, ok := w[name]; !ok {
			t.Errorf("document %q missing", name)
		}
	}
	if src.Name() != "dir:"+dir {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestDirSource_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"root.yaml":   "a: 1\n",
		"other.json":  `{"b": 2}`,
		"legacy.YAML": "c: 3\n",
	})

	w, err := NewDirSource(dir, []string{".yaml"}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, ok := w["other"]; ok {
		t.Error("json document loaded despite extension filter")
	}
	if _, ok := w["legacy"]; !ok {
		t.Error("extension match should be case-insensitive")
	}
}

func TestDirSource_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"root.yaml": "a: 1\n",
		"root.json": `{"a": 1}`,
	})

	_, err := NewDirSource(dir, nil).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "duplicate document") {
		t.Errorf("Load() error = %v, want duplicate document error", err)
	}
}

func TestDirSource_Errors(t *testing.T) {
	if _, err := NewDirSource(filepath.Join(t.TempDir(), "missing"), nil).Load(context.Background()); err == nil {
		t.Error("Load() on missing directory succeeded")
	}

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"root.yaml": "a: [\n"})
	if _, err := NewDirSource(dir, nil).Load(context.Background()); err == nil {
		t.Error("Load() with invalid YAML succeeded")
	}
}

func TestDirSource_CompilesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"root.yaml": "primary:\n  include: \"dbs[role: primary][host]\"\n",
		"dbs.yaml":  "- role: primary\n  host: db1\n- role: replica\n  host: db2\n",
	})

	w, err := NewDirSource(dir, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	c, err := topology.NewCompiler(w)
	if err != nil {
		t.Fatalf("NewCompiler() failed: %v", err)
	}
	got, err := c.CompileRoot()
	if err != nil {
		t.Fatalf("CompileRoot() failed: %v", err)
	}
	if want := topology.MappingOf("primary", "db1"); !topology.Equal(got, want) {
		t.Errorf("CompileRoot() = %v, want %v", topology.ToValue(got), topology.ToValue(want))
	}
}

// createTestRepo initializes a repository and commits the given files.
func createTestRepo(t *testing.T, files map[string]string) (string, *gogit.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFiles(t, repo, dir, files, "initial commit")
	return dir, repo
}

func commitFiles(t *testing.T, repo *gogit.Repository, dir string, files map[string]string, msg string) string {
	t.Helper()

	writeFiles(t, dir, files)
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	for name := range files {
		if _, err := worktree.Add(name); err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
	}
	hash, err := worktree.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func TestGitSource_Load(t *testing.T) {
	dir, repo := createTestRepo(t, map[string]string{
		"root.yaml":     "app:\n  include: svc\n",
		"svc.yaml":      "name: api\n",
		"notes.txt":     "ignored\n",
		"sub/deep.yaml": "z: 1\n",
	})

	src := NewGitSource(dir, "", "", nil)
	w, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(w) != 2 {
		t.Errorf("Load() returned %d documents, want 2", len(w))
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	if src.Commit() != head.Hash().String() {
		t.Errorf("Commit() = %s, want %s", src.Commit(), head.Hash())
	}
	if !strings.HasSuffix(src.Name(), "@HEAD") {
		t.Errorf("Name() = %q, want revision suffix", src.Name())
	}
}

func TestGitSource_IgnoresUncommittedChanges(t *testing.T) {
	dir, _ := createTestRepo(t, map[string]string{"root.yaml": "v: committed\n"})
	writeFiles(t, dir, map[string]string{
		"root.yaml":  "v: dirty\n",
		"extra.yaml": "x: 1\n",
	})

	w, err := NewGitSource(dir, "HEAD", "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := topology.MappingOf("v", "committed"); !topology.Equal(w["root"], want) {
		t.Errorf("root = %v, want committed content", topology.ToValue(w["root"]))
	}
	if _, ok := w["extra"]; ok {
		t.Error("untracked file loaded")
	}
}

func TestGitSource_Revision(t *testing.T) {
	dir, repo := createTestRepo(t, map[string]string{"root.yaml": "v: 1\n"})
	commitFiles(t, repo, dir, map[string]string{"root.yaml": "v: 2\n"}, "second")

	w, err := NewGitSource(dir, "HEAD~1", "", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := topology.MappingOf("v", 1); !topology.Equal(w["root"], want) {
		t.Errorf("root at HEAD~1 = %v, want v: 1", topology.ToValue(w["root"]))
	}

	if _, err := NewGitSource(dir, "no-such-branch", "", nil).Load(context.Background()); err == nil {
		t.Error("Load() with unknown revision succeeded")
	}
}

func TestGitSource_Subdir(t *testing.T) {
	dir, _ := createTestRepo(t, map[string]string{
		"README.yaml":          "top: true\n",
		"topologies/root.yaml": "a: 1\n",
		"topologies/b.json":    `{"b": 2}`,
	})

	w, err := NewGitSource(dir, "", "topologies/", nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(w) != 2 || w["root"] == nil || w["b"] == nil {
		t.Errorf("Load() = %v, want root and b", w)
	}

	if _, err := NewGitSource(dir, "", "missing", nil).Load(context.Background()); err == nil {
		t.Error("Load() with missing subdir succeeded")
	}
}

func TestGitSource_NotARepository(t *testing.T) {
	if _, err := NewGitSource(t.TempDir(), "", "", nil).Load(context.Background()); err == nil {
		t.Error("Load() outside a repository succeeded")
	}
}

func TestSQLiteSource(t *testing.T) {
	ctx := context.Background()
	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSource() failed: %v", err)
	}
	defer src.Close()

	if err := src.Put(ctx, "root", document.FormatYAML, []byte("svc:\n  include: svc\n")); err != nil {
		t.Fatalf("Put(root) failed: %v", err)
	}
	if err := src.Put(ctx, "svc", document.FormatJSON, []byte(`{"port": 80}`)); err != nil {
		t.Fatalf("Put(svc) failed: %v", err)
	}
	if err := src.Put(ctx, "svc", document.FormatTOML, []byte("port = 443\n")); err != nil {
		t.Fatalf("Put(svc) replace failed: %v", err)
	}
	if err := src.Put(ctx, "bad", document.FormatJSON, []byte(`{"port": `)); err == nil {
		t.Error("Put() with invalid body succeeded")
	}
	if err := src.Put(ctx, "", document.FormatYAML, []byte("a: 1")); err == nil {
		t.Error("Put() with empty name succeeded")
	}

	names, err := src.Names(ctx)
	if err != nil {
		t.Fatalf("Names() failed: %v", err)
	}
	if strings.Join(names, ",") != "root,svc" {
		t.Errorf("Names() = %v, want [root svc]", names)
	}

	w, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	c, err := topology.NewCompiler(w)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.CompileRoot()
	if err != nil {
		t.Fatalf("CompileRoot() failed: %v", err)
	}
	if want := topology.MappingOf("svc", topology.MappingOf("port", 443)); !topology.Equal(got, want) {
		t.Errorf("CompileRoot() = %v, want %v", topology.ToValue(got), topology.ToValue(want))
	}

	if err := src.Delete(ctx, "svc"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := src.Delete(ctx, "svc"); err != nil {
		t.Errorf("Delete() of missing document failed: %v", err)
	}
	w, err = src.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w["svc"]; ok {
		t.Error("deleted document still loaded")
	}
}

func TestSQLiteSource_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.db")

	src, err := NewSQLiteSource(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Put(ctx, "root", document.FormatYAML, []byte("a: 1\n")); err != nil {
		t.Fatal(err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	reopened, err := NewSQLiteSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	w, err := reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w["root"]; !ok {
		t.Error("document not persisted across reopen")
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     *config.SourceConfig
		want    string
		wantErr bool
	}{
		{name: "default is dir", cfg: &config.SourceConfig{Path: dir}, want: "dir:"},
		{name: "dir", cfg: &config.SourceConfig{Type: TypeDir, Path: dir}, want: "dir:"},
		{name: "git", cfg: &config.SourceConfig{Type: TypeGit, Path: dir, Revision: "main"}, want: "git:"},
		{name: "sqlite", cfg: &config.SourceConfig{Type: TypeSQLite, Path: filepath.Join(dir, "w.db")}, want: "sqlite:"},
		{name: "sqlite without path", cfg: &config.SourceConfig{Type: TypeSQLite}, wantErr: true},
		{name: "unknown", cfg: &config.SourceConfig{Type: "s3"}, wantErr: true},
		{name: "nil", cfg: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if closer, ok := src.(interface{ Close() error }); ok {
				defer closer.Close()
			}
			if !strings.HasPrefix(src.Name(), tt.want) {
				t.Errorf("Name() = %q, want prefix %q", src.Name(), tt.want)
			}
		})
	}
}

func TestDirSource_Files(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"root.yaml":     "a: 1\n",
		"services.json": `[]`,
		"notes.txt":     "ignored",
	})

	files, err := NewDirSource(dir, nil).Files()
	if err != nil {
		t.Fatalf("Files() failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Files() returned %d files, want 2: %v", len(files), files)
	}
	if files[0].Name != "root" || files[0].Format != document.FormatYAML {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Name != "services" || files[1].Format != document.FormatJSON {
		t.Errorf("files[1] = %+v", files[1])
	}
}

func TestSQLiteSource_PutFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"root.toml":  "[app]\ninclude = \"limits\"\n",
		"limits.yml": "max: 3\n",
	})

	db, err := NewSQLiteSource(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	files, err := NewDirSource(dir, nil).Files()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := db.PutFile(ctx, f); err != nil {
			t.Fatalf("PutFile(%s) failed: %v", f.Name, err)
		}
	}

	w, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	c, err := topology.NewCompiler(w)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.CompileRoot()
	if err != nil {
		t.Fatalf("CompileRoot() failed: %v", err)
	}
	want := topology.MappingOf("app", topology.MappingOf("max", topology.Int(3)))
	if !topology.Equal(got, want) {
		t.Errorf("CompileRoot() = %v, want %v", topology.ToValue(got), topology.ToValue(want))
	}
}
