package topology

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// Kind identifies which of the three node variants a Node is.
type Kind string

const (
	KindMapping  Kind = "mapping"
	KindSequence Kind = "sequence"
	KindScalar   Kind = "scalar"
)

// Node is a value in a topology document: a *Mapping, a Sequence or a Scalar.
// The set of implementations is closed.
type Node interface {
	Kind() Kind
	node()
}

// World maps document names to documents. It must contain "root".
type World map[string]Node

// RootName is the document every world must provide.
const RootName = "root"

// Mapping is an ordered string-keyed mapping.
// The zero value is an empty mapping ready to use.
type Mapping struct {
	keys   []string
	values map[string]Node
}

// NewMapping creates an empty mapping with room for n keys.
func NewMapping(n int) *Mapping {
	return &Mapping{
		keys:   make([]string, 0, n),
		values: make(map[string]Node, n),
	}
}

// MappingOf builds a mapping from alternating key/value arguments.
// It panics on an odd argument count or a non-string key.
func MappingOf(kv ...any) *Mapping {
	if len(kv)%2 != 0 {
		panic("topology: MappingOf requires key/value pairs")
	}
	m := NewMapping(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("topology: MappingOf key %v is not a string", kv[i]))
		}
		m.Set(key, MustFromValue(kv[i+1]))
	}
	return m
}

func (*Mapping) Kind() Kind { return KindMapping }
func (*Mapping) node()      {}

// Set stores value under key. A new key is appended to the key order;
// an existing key keeps its position.
func (m *Mapping) Set(key string, value Node) {
	if m.values == nil {
		m.values = make(map[string]Node)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Range calls fn for each entry in key order until fn returns false.
func (m *Mapping) Range(fn func(key string, value Node) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Merge copies every entry of other into m, overwriting existing keys.
func (m *Mapping) Merge(other *Mapping) {
	other.Range(func(k string, v Node) bool {
		m.Set(k, v)
		return true
	})
}

// Sequence is an ordered list of nodes.
type Sequence []Node

func (Sequence) Kind() Kind { return KindSequence }
func (Sequence) node()      {}

// Scalar holds a string, int64, float64, bool or nil value.
type Scalar struct {
	Value any
}

func (Scalar) Kind() Kind { return KindScalar }
func (Scalar) node()      {}

// String creates a string scalar.
func String(s string) Scalar { return Scalar{Value: s} }

// Int creates an integer scalar.
func Int(i int64) Scalar { return Scalar{Value: i} }

// Float creates a floating point scalar.
func Float(f float64) Scalar { return Scalar{Value: f} }

// Bool creates a boolean scalar.
func Bool(b bool) Scalar { return Scalar{Value: b} }

// Null is the null scalar.
var Null = Scalar{}

// IsString reports whether the scalar holds a string.
func (s Scalar) IsString() bool {
	_, ok := s.Value.(string)
	return ok
}

// IsNull reports whether the scalar is null.
func (s Scalar) IsNull() bool { return s.Value == nil }

// Text renders the scalar the way it would be written in a document.
// Null renders as the empty string.
func (s Scalar) Text() string {
	switch v := s.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// FromValue converts plain Go values (as produced by encoding/json or a
// generic YAML decode) into a Node. Unsupported types fail with
// UnsupportedType.
func FromValue(v any) (Node, error) {
	switch t := v.(type) {
	case Node:
		return t, nil
	case nil:
		return Null, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUnsigned(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUnsigned(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case []any:
		seq := make(Sequence, 0, len(t))
		for _, item := range t {
			n, err := FromValue(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, n)
		}
		return seq, nil
	case []string:
		seq := make(Sequence, 0, len(t))
		for _, item := range t {
			seq = append(seq, String(item))
		}
		return seq, nil
	case map[string]any:
		m := NewMapping(len(t))
		for _, k := range sortedKeys(t) {
			n, err := FromValue(t[k])
			if err != nil {
				return nil, err
			}
			m.Set(k, n)
		}
		return m, nil
	default:
		return nil, newError(UnsupportedType, "", fmt.Sprintf("Unknown datastruct type %T", v))
	}
}

func fromUnsigned(u uint64) (Node, error) {
	if u > math.MaxInt64 {
		return nil, newError(UnsupportedType, "", fmt.Sprintf("Integer %d overflows int64", u))
	}
	return Int(int64(u)), nil
}

// MustFromValue is FromValue that panics on error. Intended for tests and
// literals.
func MustFromValue(v any) Node {
	n, err := FromValue(v)
	if err != nil {
		panic(err)
	}
	return n
}

// ToValue converts a Node back into plain Go values. Mappings become
// map[string]any and lose their key order.
func ToValue(n Node) any {
	switch t := n.(type) {
	case *Mapping:
		out := make(map[string]any, t.Len())
		t.Range(func(k string, v Node) bool {
			out[k] = ToValue(v)
			return true
		})
		return out
	case Sequence:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToValue(item)
		}
		return out
	case Scalar:
		return t.Value
	default:
		return nil
	}
}

// Equal reports deep structural equality. Mapping key order is ignored.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || x.Len() != y.Len() {
			return false
		}
		equal := true
		x.Range(func(k string, v Node) bool {
			w, ok := y.Get(k)
			if !ok || !Equal(v, w) {
				equal = false
			}
			return equal
		})
		return equal
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x.Value == y.Value
	default:
		return a == nil && b == nil
	}
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
