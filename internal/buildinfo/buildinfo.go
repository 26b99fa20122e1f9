// Package buildinfo holds version and build metadata stamped at compile time via ldflags.
package buildinfo

import (
	"fmt"
	"runtime"
	"time"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "2.1.0-dev"
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

// Edition is shown next to the version in the dashboard sidebar.
const Edition = "Enterprise Edition"

var startTime = time.Now()

// Info returns build and runtime info as a map, suitable for JSON output.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"edition":    Edition,
		"git_commit": GitCommit,
		"git_branch": GitBranch,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}

// Uptime returns the duration since process start.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String returns a one-line summary for logging.
func String() string {
	return fmt.Sprintf("Stratagem %s (%s@%s) built %s", Version, GitCommit, GitBranch, BuildTime)
}

// Caption returns the short sidebar label, e.g. "v2.1.0 | Enterprise Edition".
func Caption() string {
	return fmt.Sprintf("v%s | %s", Version, Edition)
}

// UserAgent is the User-Agent sent to API providers that expect one.
func UserAgent() string {
	return "Stratagem/" + Version
}
