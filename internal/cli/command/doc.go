// Package command provides CLI command definitions for veildir.
//
// It uses urfave/cli/v2 for command parsing. Commands operate on the
// local cache directory directly: Badger holds an exclusive directory
// lock, so the tool cannot run against a directory a live client
// process has open.
package command
