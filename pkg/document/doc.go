// Package document converts between serialized topology documents and
// topology.Node trees.
//
// YAML is decoded through yaml.Node so mapping key order survives a
// decode/compile/encode round trip. JSON input is read by the YAML decoder.
// TOML is decoded with BurntSushi/toml; its tables come back with sorted keys.
//
//	n, err := document.ReadFile("topologies/root.yaml")
//	data, err := document.Encode(n, document.FormatJSON)
package document
