// Package config loads underway configuration.
//
// Configuration comes from a YAML file decoded on top of Default, followed
// by environment overrides named UNDERWAY_SECTION_FIELD:
//
//   - UNDERWAY_SOURCE_PATH overrides source.path
//   - UNDERWAY_COMPILER_MAX_DEPTH overrides compiler.max_depth
//   - UNDERWAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Validate reports every invalid field at once as a ValidationError.
//
// A complete file:
//
//	source:
//	  type: git
//	  path: ./infra
//	  revision: main
//	  subdir: topologies
//	compiler:
//	  max_depth: 25
//	  variant: filter
//	output:
//	  path: build/topology.json
//	  format: json
//	history:
//	  backend: sqlite
//	  path: .underway/history.db
//	  retention: 168h
//	watch:
//	  schedule: "@every 5m"
//	telemetry:
//	  logging:
//	    level: debug
//	  metrics:
//	    address: 127.0.0.1:9090
//
// The CLI calls Load with the --config path, so a missing file means
// defaults, and installs the result with SetConfig. Long-running callers that
// own the process use Initialize and ReloadConfig instead.
package config
