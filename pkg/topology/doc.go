// Package topology expands include directives in topology documents.
//
// # Overview
//
// A topology is a tree of mappings, sequences and scalars. Any mapping may
// carry the reserved key "include", whose string value names another
// document in the World. Compilation replaces the include with the named
// document's own compiled content:
//
//	world := topology.World{
//	    "root": topology.MappingOf("db", topology.MappingOf("include", "postgres")),
//	    "postgres": topology.MappingOf("host", "db.internal", "port", 5432),
//	}
//	c, err := topology.NewCompiler(world)
//	if err != nil {
//	    return err
//	}
//	out, err := c.CompileRoot()
//	// out: {db: {host: db.internal, port: 5432}}
//
// # Include Grammar
//
//	name                         include a whole document
//	name[key: value]             include the one list element whose key equals value
//	name[key: value][field]      include one field of that element
//
// Identifiers use letters, digits and underscores. When the included content
// is a mapping its keys are merged into the enclosing mapping; when it is
// anything else (for example an extracted string) it replaces the enclosing
// mapping entirely.
//
// # Termination
//
// Every compile invocation, including the nested ones made while resolving
// includes, increments a per-Compiler counter. Compilation fails with
// RecursionLimitExceeded once the counter reaches the ceiling (10 by
// default). The counter measures total work, not nesting depth, so wide
// documents consume the budget as well as deep ones.
//
// # Errors
//
// All failures are *ConfigError values carrying an ErrorKind and a numeric
// code. The first failure aborts the whole compile; there are no partial
// results. Use IsKind or KindOf to inspect them.
package topology
