// Package bchunk mediates access to the bchunk CLI that splits BIN/CUE disc
// images into an ISO data track and WAV/CDR audio tracks.
//
// The client only runs the tool and reports what it wrote; choosing the data
// track and copying audio is left to the CUE/BIN extraction handler.
package bchunk
