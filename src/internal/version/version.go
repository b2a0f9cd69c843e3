// FILE: logpulse/src/internal/version/version.go
package version

import "fmt"

var (
	// Set at build time via -ldflags "-X logpulse/src/internal/version.Version=..."
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the version with build metadata
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// Short returns just the version tag
func Short() string {
	return Version
}

// ServerName is the identifier sent in the Server response header
func ServerName() string {
	return "logpulse/" + Version
}
