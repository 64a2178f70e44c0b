// Package config loads, normalizes, and validates installer configuration.
//
// It supplies repository defaults, resolves platform directories (XDG on
// Linux, Application Support on macOS, AppData on Windows), expands user
// paths, reads TOML files, and honours environment fallbacks such as
// ROLLER_PROJECT_ROOT and BCHUNK_PATH.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and clear validation errors.
package config
