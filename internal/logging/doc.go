// Package logging assembles structured slog loggers for mvspipe.
//
// It owns the console and JSON handlers, level parsing, and output plumbing
// (stdout plus the log file under the configured log directory). WithContext
// stamps job ids, stage names, and the workspace path carried on a context so
// stage and workflow code does not have to thread them by hand. NewNop serves
// tests and wiring that cannot fail.
package logging
