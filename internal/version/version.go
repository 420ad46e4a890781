// Package version carries build identity injected at link time via
// -ldflags "-X github.com/bbejczy/polarseg-kitti/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line build identifier for log banners and run records.
func String() string {
	return fmt.Sprintf("polarseg %s (%s, built %s)", Version, GitSHA, BuildTime)
}
