// Package cli provides the command-line interface for handlerprobe.
//
// The commands work on scenario files, the declarative form of a probe:
//   - validate: Load and schema-check scenario files
//   - inspect: Print scenarios after environment expansion, as YAML or JSON
//   - schema: Print the JSON Schema scenario files are checked against
//   - version: Show handlerprobe version
//
// Running scenarios needs the handler under test, so that happens in Go
// tests through pkg/testing.
//
// Usage:
//
//	handlerprobe validate testdata/scenarios/**/*.yaml
//	handlerprobe validate --json scenarios.yaml
//	handlerprobe inspect --name "get user" scenarios.yaml
//	handlerprobe schema > scenario.schema.json
package cli
