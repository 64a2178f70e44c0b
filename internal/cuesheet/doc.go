// Package cuesheet parses and writes CUE sheets, the text descriptors that
// accompany raw BIN disc images.
//
// Only the subset needed to split an image is modelled: FILE, TRACK, and
// INDEX commands. Other commands are kept verbatim on the file or track they
// belong to so a sheet can be re-emitted for a single FILE without losing
// PREGAP or FLAGS lines.
package cuesheet
