// Underway compiles topology documents by expanding their include
// directives.
//
// A topology is a set of named YAML, JSON or TOML documents. The document
// named "root" is compiled: every mapping holding an include key is replaced
// by the named document, optionally narrowed to one element of a list
// (name[key: value]) and to one field of that element (name[key: value][field]).
//
// Usage:
//
//	# Compile ./topologies/root.yaml to stdout
//	underway compile
//
//	# Compile documents from a git commit into a file
//	underway compile --source-type git --source . --revision v1.2.0 -o out.json
//
//	# Check that a topology compiles
//	underway validate --source ./topologies
//
//	# Rebuild whenever a document changes
//	underway watch -o build/topology.yaml
//
//	# Show recent builds
//	underway history
package main

import (
	"fmt"
	"os"

	"underway-hq/underway/pkg/cli"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(cli.ExitCode(err))
	}
}
