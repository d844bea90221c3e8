// Package version carries build metadata stamped in via -ldflags.
package version

import "fmt"

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/noise/internal/version.Version=v0.3.0".
var Version = "dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	Commit    = "unknown"
)

// String renders the version line printed by `noise --version`.
func String() string {
	return fmt.Sprintf("noise %s (commit %s, built %s)", Version, Commit, BuildTime)
}
