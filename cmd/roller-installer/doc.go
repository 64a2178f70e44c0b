// Package main hosts the roller-installer CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into calls on the
// extraction coordinator, the tool resolver, and the ubi release fetcher.
// It centralizes configuration resolution, logger setup, and tool caching so
// subcommands can focus on presentation.
//
// Keep this package lean: new behaviour belongs in internal packages first,
// then surfaces here through a dedicated command or flag.
package main
