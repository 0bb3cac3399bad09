// Package version holds build information for docindex.
package version

// Overridden at build time:
// go build -ldflags "-X github.com/JanSimek/fallout2-modding/internal/version.Version=1.2.0 -X github.com/JanSimek/fallout2-modding/internal/version.Commit=abc123"
var (
	// Version is the semantic version of docindex
	Version = "0.4.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}
