// Package ubi wraps the ubi ("universal binary installer") CLI used to fetch a
// ROLLER release for the current platform.
package ubi
