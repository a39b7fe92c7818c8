// Package logging assembles the structured slog loggers used by the daemon
// and the CLI.
//
// It owns the console and JSON handlers, level parsing, and output fan-out
// to stdout, stderr and log files. A no-op logger is provided for tests and
// for callers that do not configure logging.
package logging
