package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"underway-hq/underway/pkg/topology"
)

// TOML tables carry no key order once decoded, so mappings decoded from TOML
// have their keys sorted.
func decodeTOML(data []byte) (topology.Node, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, err
	}
	return topology.FromValue(normalizeTOML(raw))
}

// normalizeTOML rewrites TOML-specific value types into the plain values
// topology.FromValue understands.
func normalizeTOML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeTOML(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeTOML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeTOML(val)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case fmt.Stringer:
		// toml.LocalDate, toml.LocalTime, toml.LocalDateTime
		return t.String()
	default:
		return v
	}
}

func encodeTOML(n topology.Node) ([]byte, error) {
	if _, ok := n.(*topology.Mapping); !ok {
		return nil, fmt.Errorf("TOML output requires a mapping at the top level, got %s", n.Kind())
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(topology.ToValue(n)); err != nil {
		return nil, fmt.Errorf("failed to encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}
