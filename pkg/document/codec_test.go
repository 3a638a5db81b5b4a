package document

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"underway-hq/underway/pkg/topology"
)

func TestDecode_YAMLPreservesOrder(t *testing.T) {
	src := `
zeta: 1
alpha:
  include: leaf
mid: [a, 2, 3.5, true, null]
`
	n, err := Decode([]byte(src), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	m, ok := n.(*topology.Mapping)
	if !ok {
		t.Fatalf("Decode() = %T, want *topology.Mapping", n)
	}
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("Keys() = %v, want [zeta alpha mid]", got)
	}

	mid, _ := m.Get("mid")
	want := topology.Sequence{
		topology.String("a"), topology.Int(2), topology.Float(3.5), topology.Bool(true), topology.Null,
	}
	if !topology.Equal(mid, want) {
		t.Errorf("mid = %v, want %v", topology.ToValue(mid), topology.ToValue(want))
	}
}

func TestDecode_YAMLAliasesAndMerge(t *testing.T) {
	src := `
base: &base
  host: db
  port: 5432
replica:
  <<: *base
  host: replica
ref: *base
`
	n, err := Decode([]byte(src), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	m := n.(*topology.Mapping)

	replica, _ := m.Get("replica")
	if !topology.Equal(replica, topology.MappingOf("host", "replica", "port", 5432)) {
		t.Errorf("replica = %v", topology.ToValue(replica))
	}
	ref, _ := m.Get("ref")
	if !topology.Equal(ref, topology.MappingOf("host", "db", "port", 5432)) {
		t.Errorf("ref = %v", topology.ToValue(ref))
	}
}

func aliasBomb(levels int) string {
	var b strings.Builder
	b.WriteString(`l0: &l0 ["lol","lol","lol","lol","lol","lol","lol","lol","lol"]` + "\n")
	for i := 1; i <= levels; i++ {
		refs := strings.TrimSuffix(strings.Repeat(fmt.Sprintf("*l%d,", i-1), 9), ",")
		fmt.Fprintf(&b, "l%d: &l%d [%s]\n", i, i, refs)
	}
	return b.String()
}

func TestDecode_AliasErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "alias inside its own anchor",
			src:     "a: &x\n  b: *x\n",
			wantErr: `alias "x" refers to itself`,
		},
		{
			name:    "alias nested deeper in its anchor",
			src:     "a: &x\n  b:\n    - c: *x\n",
			wantErr: `alias "x" refers to itself`,
		},
		{
			name:    "self reference through merge key",
			src:     "a: &x\n  b: 1\n  <<: *x\n",
			wantErr: `alias "x" refers to itself`,
		},
		{
			name:    "exponential expansion",
			src:     aliasBomb(5),
			wantErr: "excessive aliasing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src), FormatYAML)
			if err == nil {
				t.Fatal("Decode() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Decode() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_RepeatedAliasesAllowed(t *testing.T) {
	src := "base: &b {host: db}\none: *b\ntwo: *b\nthree: [*b, *b]\n"
	n, err := Decode([]byte(src), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	three, _ := n.(*topology.Mapping).Get("three")
	want := topology.Sequence{topology.MappingOf("host", "db"), topology.MappingOf("host", "db")}
	if !topology.Equal(three, want) {
		t.Errorf("three = %v", topology.ToValue(three))
	}
}

func TestDecode_QuotedNumbersStayStrings(t *testing.T) {
	n, err := Decode([]byte(`id: "42"`), FormatYAML)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	id, _ := n.(*topology.Mapping).Get("id")
	if !topology.Equal(id, topology.String("42")) {
		t.Errorf("id = %#v, want string 42", id)
	}
}

func TestDecode_Empty(t *testing.T) {
	n, err := Decode(nil, FormatYAML)
	if err != nil {
		t.Fatalf("Decode(nil) failed: %v", err)
	}
	if !topology.Equal(n, topology.Null) {
		t.Errorf("Decode(nil) = %v, want null", n)
	}
}

func TestDecode_JSON(t *testing.T) {
	n, err := Decode([]byte(`{"b": [1, {"include": "x"}], "a": "s"}`), FormatJSON)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	want := topology.MappingOf("b", []any{1, topology.MappingOf("include", "x")}, "a", "s")
	if !topology.Equal(n, want) {
		t.Errorf("Decode() = %v, want %v", topology.ToValue(n), topology.ToValue(want))
	}
	if got := n.(*topology.Mapping).Keys(); got[0] != "b" {
		t.Errorf("first key = %q, want b", got[0])
	}
}

func TestDecode_TOML(t *testing.T) {
	src := `
name = "edge"
ports = [80, 443]

[db]
host = "db.internal"

[[users]]
role = "admin"
email = "a@x.com"

[[users]]
role = "user"
email = "b@x.com"
`
	n, err := Decode([]byte(src), FormatTOML)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	m := n.(*topology.Mapping)
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"db", "name", "ports", "users"}) {
		t.Errorf("Keys() = %v, want sorted keys", got)
	}
	users, _ := m.Get("users")
	matches := topology.FilterSequence(users.(topology.Sequence), "role", "admin")
	if len(matches) != 1 {
		t.Fatalf("filter on TOML array of tables matched %d, want 1", len(matches))
	}
	ports, _ := m.Get("ports")
	if !topology.Equal(ports, topology.Sequence{topology.Int(80), topology.Int(443)}) {
		t.Errorf("ports = %v", topology.ToValue(ports))
	}
}

func TestEncode_YAML(t *testing.T) {
	n := topology.MappingOf(
		"name", "svc",
		"port", "8080",
		"replicas", 3,
		"ratio", 1.0,
		"tags", []any{"a", "b"},
		"extra", nil,
	)
	data, err := Encode(n, FormatYAML)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	want := `name: svc
port: "8080"
replicas: 3
ratio: 1.0
tags:
  - a
  - b
extra: null
`
	if string(data) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", data, want)
	}

	back, err := Decode(data, FormatYAML)
	if err != nil {
		t.Fatalf("Decode(Encode()) failed: %v", err)
	}
	if !topology.Equal(back, n) {
		t.Errorf("round trip = %v, want %v", topology.ToValue(back), topology.ToValue(n))
	}
}

func TestEncode_JSON(t *testing.T) {
	n := topology.MappingOf("b", []any{1, "x"}, "a", topology.MappingOf(), "c", []any{})
	data, err := Encode(n, FormatJSON)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	want := `{
  "b": [
    1,
    "x"
  ],
  "a": {},
  "c": []
}
`
	if string(data) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", data, want)
	}
}

func TestEncode_TOML(t *testing.T) {
	data, err := Encode(topology.MappingOf("name", "edge", "db", topology.MappingOf("port", 5432)), FormatTOML)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if !strings.Contains(string(data), `name = "edge"`) || !strings.Contains(string(data), "[db]") {
		t.Errorf("Encode() = %s", data)
	}

	if _, err := Encode(topology.Sequence{topology.String("x")}, FormatTOML); err == nil {
		t.Error("Encode(sequence, TOML) succeeded, want error")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatJSON,
		"a.toml": FormatTOML,
	}
	for path, want := range tests {
		got, ok := FormatFromPath(path)
		if !ok || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := FormatFromPath("a.txt"); ok {
		t.Error("FormatFromPath(a.txt) ok = true")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) succeeded, want error")
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "compiled.yaml")
	n := topology.MappingOf("a", topology.MappingOf("b", "c"))

	if err := WriteFile(path, n, FormatYAML); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !topology.Equal(got, n) {
		t.Errorf("ReadFile() = %v, want %v", topology.ToValue(got), topology.ToValue(n))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want only the output file", len(entries))
	}

	if _, err := ReadFile(filepath.Join(dir, "notes.txt")); err == nil {
		t.Error("ReadFile(.txt) succeeded, want error")
	}
}
