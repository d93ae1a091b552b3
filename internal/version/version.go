// Package version holds docbench build metadata, printed by the version
// subcommand.
package version

// Injected at build time via
// -ldflags "-X github.com/docbench/docbench/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
