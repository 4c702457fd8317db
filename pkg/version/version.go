// Package version exposes build metadata stamped in via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release version, "dev" for unstamped builds.
	Version = "dev"

	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// String renders the full multi-line version report.
func String() string {
	return fmt.Sprintf("androprof version %s\nGit commit: %s\nBuild date: %s\nGo version: %s",
		Version, GitCommit, BuildDate, runtime.Version())
}
