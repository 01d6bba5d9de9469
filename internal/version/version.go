// Package version holds build metadata set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release version.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("laptrace %s (%s, built %s, %s)", Version, short(GitSHA), BuildTime, runtime.Version())
}

func short(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
