// Package logging builds the slog loggers used across the daemon and CLI.
//
// New constructs a logger from Options (level, console or json format, output
// paths); NewFromConfig wires it to the application config and tees output to
// the log directory. The Attr helpers keep call sites terse and consistent
// about field names: task ids, stages, and lanes always log under the same
// keys.
package logging
