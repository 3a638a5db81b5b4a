package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"underway-hq/underway/pkg/topology"
)

// Format is a document serialization format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

var extFormats = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".toml": FormatTOML,
}

// Extensions returns the file extensions with a known format.
func Extensions() []string {
	return []string{".yaml", ".yml", ".json", ".toml"}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unknown document format %q", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	f, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Decode parses data into a node tree.
func Decode(data []byte, format Format) (topology.Node, error) {
	switch format {
	case FormatYAML, FormatJSON:
		return decodeYAML(data)
	case FormatTOML:
		return decodeTOML(data)
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
}

// Encode serializes a node tree.
func Encode(n topology.Node, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return encodeYAML(n)
	case FormatJSON:
		var buf bytes.Buffer
		if err := writeJSON(&buf, n, ""); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatTOML:
		return encodeTOML(n)
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
}

// ReadFile reads and decodes a document, inferring the format from the
// file extension.
func ReadFile(path string) (topology.Node, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported document extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", path, err)
	}
	n, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %q: %w", path, err)
	}
	return n, nil
}

// WriteFile encodes n and replaces path atomically.
func WriteFile(path string, n topology.Node, format Format) error {
	data, err := Encode(n, format)
	if err != nil {
		return err
	}
	return WriteAtomic(path, data)
}

// WriteAtomic replaces path with data through a temp file in the same
// directory, creating parent directories as needed. Readers never see a
// partially written file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return nil
}

func decodeYAML(data []byte) (topology.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		// empty input
		return topology.Null, nil
	}
	d := &yamlDecoder{active: make(map[*yaml.Node]bool)}
	return d.fromYAML(&root)
}

// Alias expansion limits, matching the ratio yaml.v3 applies when decoding
// into Go values. Small documents may alias freely; large ones may not be
// made mostly of aliased content.
const (
	aliasRatioRangeLow  = 400000
	aliasRatioRangeHigh = 4000000
	aliasRatioRange     = float64(aliasRatioRangeHigh - aliasRatioRangeLow)
)

func allowedAliasRatio(decodeCount int) float64 {
	switch {
	case decodeCount <= aliasRatioRangeLow:
		return 0.99
	case decodeCount >= aliasRatioRangeHigh:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(decodeCount-aliasRatioRangeLow)/aliasRatioRange)
	}
}

// yamlDecoder converts a yaml.Node tree, guarding alias expansion.
type yamlDecoder struct {
	// active holds the anchors of aliases currently being expanded.
	active map[*yaml.Node]bool

	decodeCount int
	aliasCount  int
	aliasDepth  int
}

func (d *yamlDecoder) fromYAML(n *yaml.Node) (topology.Node, error) {
	d.decodeCount++
	if d.aliasDepth > 0 {
		d.aliasCount++
	}
	if d.aliasCount > 100 && d.decodeCount > 1000 &&
		float64(d.aliasCount)/float64(d.decodeCount) > allowedAliasRatio(d.decodeCount) {
		return nil, fmt.Errorf("line %d: document contains excessive aliasing", n.Line)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return topology.Null, nil
		}
		return d.fromYAML(n.Content[0])

	case yaml.AliasNode:
		if d.active[n.Alias] {
			return nil, fmt.Errorf("line %d: alias %q refers to itself", n.Line, n.Value)
		}
		d.active[n.Alias] = true
		d.aliasDepth++
		value, err := d.fromYAML(n.Alias)
		d.aliasDepth--
		delete(d.active, n.Alias)
		return value, err

	case yaml.MappingNode:
		m := topology.NewMapping(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				if err := d.mergeYAML(m, v); err != nil {
					return nil, err
				}
				continue
			}
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			value, err := d.fromYAML(v)
			if err != nil {
				return nil, err
			}
			m.Set(k.Value, value)
		}
		return m, nil

	case yaml.SequenceNode:
		seq := make(topology.Sequence, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := d.fromYAML(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil

	case yaml.ScalarNode:
		return scalarFromYAML(n)

	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

// mergeYAML applies a "<<" merge key. Explicit keys already present win.
func (d *yamlDecoder) mergeYAML(m *topology.Mapping, v *yaml.Node) error {
	sources := []*yaml.Node{v}
	if v.Kind == yaml.SequenceNode {
		sources = v.Content
	}
	for _, src := range sources {
		n, err := d.fromYAML(src)
		if err != nil {
			return err
		}
		sm, ok := n.(*topology.Mapping)
		if !ok {
			return fmt.Errorf("line %d: merge key value must be a mapping", src.Line)
		}
		sm.Range(func(k string, val topology.Node) bool {
			if !m.Has(k) {
				m.Set(k, val)
			}
			return true
		})
	}
	return nil
}

func scalarFromYAML(n *yaml.Node) (topology.Node, error) {
	switch n.ShortTag() {
	case "!!null":
		return topology.Null, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return topology.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return topology.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return topology.Float(f), nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their text
		return topology.String(n.Value), nil
	}
}

func encodeYAML(n topology.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAML(n)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toYAML(n topology.Node) *yaml.Node {
	switch t := n.(type) {
	case *topology.Mapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		t.Range(func(k string, v topology.Node) bool {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toYAML(v),
			)
			return true
		})
		return out
	case topology.Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			out.Content = append(out.Content, toYAML(item))
		}
		return out
	case topology.Scalar:
		return scalarToYAML(t)
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func scalarToYAML(s topology.Scalar) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode}
	switch v := s.Value.(type) {
	case nil:
		node.Tag, node.Value = "!!null", "null"
	case string:
		node.Tag, node.Value = "!!str", v
	case int64:
		node.Tag, node.Value = "!!int", strconv.FormatInt(v, 10)
	case float64:
		node.Tag = "!!float"
		switch {
		case math.IsInf(v, 1):
			node.Value = ".inf"
		case math.IsInf(v, -1):
			node.Value = "-.inf"
		case math.IsNaN(v):
			node.Value = ".nan"
		default:
			node.Value = strconv.FormatFloat(v, 'g', -1, 64)
			if !strings.ContainsAny(node.Value, ".eE") {
				node.Value += ".0"
			}
		}
	case bool:
		node.Tag, node.Value = "!!bool", strconv.FormatBool(v)
	default:
		node.Tag, node.Value = "!!str", s.Text()
	}
	return node
}

func writeJSON(buf *bytes.Buffer, n topology.Node, indent string) error {
	const step = "  "
	switch t := n.(type) {
	case *topology.Mapping:
		if t.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		i := 0
		var err error
		t.Range(func(k string, v topology.Node) bool {
			key, _ := json.Marshal(k)
			buf.WriteString(indent + step)
			buf.Write(key)
			buf.WriteString(": ")
			if err = writeJSON(buf, v, indent+step); err != nil {
				return false
			}
			i++
			if i < t.Len() {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
			return true
		})
		if err != nil {
			return err
		}
		buf.WriteString(indent + "}")
		return nil
	case topology.Sequence:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range t {
			buf.WriteString(indent + step)
			if err := writeJSON(buf, item, indent+step); err != nil {
				return err
			}
			if i < len(t)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "]")
		return nil
	case topology.Scalar:
		data, err := json.Marshal(t.Value)
		if err != nil {
			return fmt.Errorf("failed to encode scalar %v: %w", t.Value, err)
		}
		buf.Write(data)
		return nil
	default:
		buf.WriteString("null")
		return nil
	}
}
