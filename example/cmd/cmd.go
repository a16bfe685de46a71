// Package cmd holds the build metadata stamped into the binaries.
package cmd

// Overridden with -ldflags at build time.
var (
	Version = "dev"
	Date    = "unknown"
)
