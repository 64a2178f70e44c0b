// Package extract locates the game's asset directory inside a container
// (ZIP archive, ISO 9660 image, or CUE/BIN pair) and copies it to disk.
//
// The Coordinator is the entry point. It checks the destination, picks the
// first registered Handler whose CanHandle accepts the source, and returns a
// Result. Expected failures never surface as Go errors: they travel inside
// Result.Err with a code from internal/services, and only contract
// violations (empty paths, nil context) are returned directly.
//
// Handlers write through a sink rooted at destination/<output_name>. The
// sink refuses paths that would leave that root, counts files and bytes,
// fires progress callbacks, and checks for cancellation between files.
package extract
