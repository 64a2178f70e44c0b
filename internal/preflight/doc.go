// Package preflight provides readiness checks for the filesystem paths the
// installer writes to.
//
// The extract command runs RunAll before touching the source archive and
// CheckDestination for the target directory, so a read-only install
// location fails in milliseconds instead of after a long bchunk split.
// "roller-installer tools" reuses the same checks for its status table.
package preflight
