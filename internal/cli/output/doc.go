// Package output provides output formatting for the veildir CLI.
//
// Commands produce data; this package renders it in the format the
// user asked for:
//
//   - table: aligned columns via text/tabwriter (default)
//   - json: indented JSON
//   - yaml: YAML document
package output
