// Package services defines shared utilities consumed by the extraction core
// and the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp extraction IDs, source paths, and handler
//     names for logging.
//   - The failure code taxonomy plus the Fail helper that builds coded errors
//     naming the source file and the attempted operation.
//   - The Runner abstraction that makes external command execution testable.
//
// Use these helpers when adding a handler or tool wrapper so failures and
// log lines keep the same shape across formats.
package services
