package topology

import (
	"fmt"
	"log/slog"
)

// DefaultMaxDepth is the default ceiling on cumulative compile calls.
const DefaultMaxDepth = 10

// Variant selects the include semantics of a Compiler.
type Variant string

const (
	// VariantFilter supports the full include grammar, including filter and
	// extraction suffixes, and accepts any node at the top level.
	VariantFilter Variant = "filter"

	// VariantMerge looks include values up verbatim, always merges the
	// included mapping, and only accepts mappings at the top level.
	VariantMerge Variant = "merge"
)

// ParseVariant parses a variant name. The empty string selects VariantFilter.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantFilter:
		return VariantFilter, nil
	case VariantMerge:
		return VariantMerge, nil
	default:
		return "", fmt.Errorf("unknown compiler variant %q", s)
	}
}

// Observer is notified of include resolutions. Implementations must be cheap;
// they run inline with compilation.
type Observer interface {
	IncludeResolved(ref Reference)
}

// Compiler expands include directives against a World.
//
// A Compiler is not safe for concurrent use. Its call counter counts every
// compile invocation made by the instance, nested ones included, and is never
// decremented: a document with K sibling includes uses K units of the same
// budget as a chain K deep. Use a fresh Compiler per independent compile.
type Compiler struct {
	world    World
	maxDepth int
	variant  Variant
	logger   *slog.Logger
	observer Observer

	calls int
}

// NewCompiler creates a compiler over world. It fails with MissingRoot when
// world has no "root" document.
func NewCompiler(world World) (*Compiler, error) {
	if _, ok := world[RootName]; !ok {
		return nil, newError(MissingRoot, "", "Cannot find the root topology file.")
	}
	return &Compiler{
		world:    world,
		maxDepth: DefaultMaxDepth,
		variant:  VariantFilter,
		logger:   slog.Default().With("component", "topology.compiler"),
	}, nil
}

// WithMaxDepth sets the call ceiling used by Compile.
func (c *Compiler) WithMaxDepth(n int) *Compiler {
	c.maxDepth = n
	return c
}

// WithVariant selects the include semantics.
func (c *Compiler) WithVariant(v Variant) *Compiler {
	c.variant = v
	return c
}

// WithLogger sets the logger used for debug output.
func (c *Compiler) WithLogger(l *slog.Logger) *Compiler {
	if l != nil {
		c.logger = l.With("component", "topology.compiler")
	}
	return c
}

// WithObserver registers an observer for include resolutions.
func (c *Compiler) WithObserver(o Observer) *Compiler {
	c.observer = o
	return c
}

// Calls returns the number of compile invocations made so far.
func (c *Compiler) Calls() int {
	return c.calls
}

// Reset zeroes the call counter.
func (c *Compiler) Reset() {
	c.calls = 0
}

// World returns the compiler's document set.
func (c *Compiler) World() World {
	return c.world
}

// CompileRoot compiles the world's root document.
func (c *Compiler) CompileRoot() (Node, error) {
	return c.Compile(c.world[RootName])
}

// Compile expands node using the configured ceiling.
func (c *Compiler) Compile(node Node) (Node, error) {
	return c.CompileDepth(node, c.maxDepth)
}

// CompileDepth expands node, failing with RecursionLimitExceeded once the
// call counter reaches maxDepth. The same ceiling applies to every nested
// compile triggered by include resolution.
func (c *Compiler) CompileDepth(node Node, maxDepth int) (Node, error) {
	c.calls++
	if c.calls >= maxDepth {
		return nil, newError(RecursionLimitExceeded, "", fmt.Sprintf(
			"Recursion depth exceeded %d. This is usually caused by a recursive include in a topology file that never terminates.",
			maxDepth))
	}

	if c.variant == VariantMerge {
		m, ok := node.(*Mapping)
		if !ok {
			return nil, newError(NotAMapping, "", "Input must be a hash, not list.")
		}
		return c.processMapping(m, maxDepth)
	}

	switch n := node.(type) {
	case *Mapping:
		return c.processMapping(n, maxDepth)
	case Sequence:
		return c.processSequence(n, maxDepth)
	case Scalar:
		if n.IsString() {
			return n, nil
		}
		return nil, newError(UnsupportedType, "", fmt.Sprintf("Unknown datastruct type %T", n.Value))
	default:
		return nil, newError(UnsupportedType, "", fmt.Sprintf("Unknown datastruct type %T", node))
	}
}

// processMapping expands a mapping. An include whose result is a mapping is
// merged into the output; any other result replaces the whole mapping.
func (c *Compiler) processMapping(d *Mapping, limit int) (Node, error) {
	out := NewMapping(d.Len())
	for _, k := range d.keys {
		v := d.values[k]
		if k == IncludeKey {
			inserted, err := c.resolveInclude(v, limit)
			if err != nil {
				return nil, err
			}
			m, ok := inserted.(*Mapping)
			if !ok {
				return inserted, nil
			}
			out.Merge(m)
			continue
		}

		r, err := c.processValue(v, limit)
		if err != nil {
			return nil, err
		}
		out.Set(k, r)
	}
	return out, nil
}

func (c *Compiler) processSequence(l Sequence, limit int) (Node, error) {
	out := make(Sequence, 0, len(l))
	for _, item := range l {
		r, err := c.processValue(item, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Compiler) processValue(v Node, limit int) (Node, error) {
	switch n := v.(type) {
	case *Mapping:
		return c.processMapping(n, limit)
	case Sequence:
		return c.processSequence(n, limit)
	default:
		return v, nil
	}
}

// resolveInclude returns the compiled content named by an include value.
func (c *Compiler) resolveInclude(v Node, limit int) (Node, error) {
	s, ok := v.(Scalar)
	if !ok || !s.IsString() {
		return nil, newError(MalformedInclude, "", fmt.Sprintf(
			"Include value must be a string, got %s.", describe(v)))
	}
	spec := s.Value.(string)

	var ref Reference
	if c.variant == VariantMerge {
		ref = Reference{Name: spec}
	} else {
		var err error
		ref, err = ParseReference(spec)
		if err != nil {
			return nil, err
		}
	}

	target, ok := c.world[ref.Name]
	if !ok {
		return nil, newError(IncludeNotFound, spec, fmt.Sprintf("Included topology file %s not found.", spec))
	}

	c.logger.Debug("resolving include", "spec", spec, "calls", c.calls)
	if c.observer != nil {
		c.observer.IncludeResolved(ref)
	}

	if !ref.HasFilter() {
		return c.CompileDepth(target, limit)
	}

	match, err := c.filter(spec, ref, target)
	if err != nil {
		return nil, err
	}
	if !ref.HasExtract() {
		return c.CompileDepth(match, limit)
	}
	field, ok := match.Get(ref.ExtractKey)
	if !ok {
		return nil, newError(ExtractionKeyNotFound, spec, fmt.Sprintf(
			"Included file with filter spec = %s resulted in a match but property %s could not be found.",
			spec, ref.ExtractKey))
	}
	return c.CompileDepth(field, limit)
}

// filter selects the single mapping element of target whose filter key
// matches the reference's filter value.
func (c *Compiler) filter(spec string, ref Reference, target Node) (*Mapping, error) {
	list, ok := target.(Sequence)
	if !ok {
		return nil, newError(UnsupportedType, spec, fmt.Sprintf(
			"Included file with filter spec = %s is a %s, not a list.", spec, describe(target)))
	}

	matches := FilterSequence(list, ref.FilterKey, ref.FilterValue)
	switch len(matches) {
	case 0:
		return nil, newError(FilterNoMatch, spec, fmt.Sprintf(
			"Included file with filter spec = %s resulted in no matches.", spec))
	case 1:
		return matches[0], nil
	default:
		return nil, newError(FilterAmbiguous, spec, fmt.Sprintf(
			"Included file with filter spec = %s resulted in multiple matches.", spec))
	}
}

// FilterSequence returns the mapping elements of list whose key holds a
// scalar whose text equals value. Non-mapping elements and elements without
// the key never match.
func FilterSequence(list Sequence, key, value string) []*Mapping {
	var out []*Mapping
	for _, item := range list {
		m, ok := item.(*Mapping)
		if !ok {
			continue
		}
		v, ok := m.Get(key)
		if !ok {
			continue
		}
		if s, ok := v.(Scalar); ok && s.Text() == value {
			out = append(out, m)
		}
	}
	return out
}

func describe(n Node) string {
	if n == nil {
		return "nil"
	}
	return string(n.Kind())
}
