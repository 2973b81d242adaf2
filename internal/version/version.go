package version

const (
	// Name of the application
	Name = "Hostwarden"
)

var (
	// Version is the semantic version, also announced to the backend daemon
	Version = "1.5.3"
	// BuildTime is set during build via ldflags
	BuildTime = "unknown"
	// GitCommit is set during build via ldflags
	GitCommit = "unknown"
)

// Full returns the complete version string.
func Full() string {
	if BuildTime == "unknown" || GitCommit == "unknown" {
		return Version
	}
	return Version + " (commit: " + GitCommit + ", built: " + BuildTime + ")"
}
