// Package version provides build version information for the momentum
// binaries. These variables are set at build time via ldflags.
// Example: go build -ldflags "-X momentum/pkg/version.Version=v1.2.3".
package version

//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// Version is the semantic version, or "dev" for development builds.
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String returns the full version line printed by the version commands.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
