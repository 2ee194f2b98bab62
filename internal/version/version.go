package version

// Version contains the orchestrator version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/pkgdocs/internal/version.Version=v0.4.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns the version banner recorded with every build, in the same
// "<name> <version> (<commit> <date>)" shape the toolchain reports.
func String() string {
	return "pkgdocs " + Version + " (" + GitCommit + " " + BuildTime + ")"
}
