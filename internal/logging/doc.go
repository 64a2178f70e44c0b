// Package logging assembles structured slog loggers and formatting helpers
// used by the extraction core and the CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so handler code can tag log
// lines with extraction IDs, source paths, and format names. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
