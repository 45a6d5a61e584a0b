// Package version carries build information injected via -ldflags.
//
//	go build -ldflags "-X github.com/okian/scoreboard/internal/version.Version=1.2.0"
package version

// Set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
