// Package logs reads the installer log file for `roller-installer logs`.
//
// Last returns the trailing lines with bounded memory; Follow polls for
// appended lines until its context ends. Both can filter on a substring,
// which the CLI uses to isolate one extraction by its id.
package logs
