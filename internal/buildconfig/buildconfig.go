package buildconfig

// Set at release time via -ldflags, e.g.
// -X github.com/cropsense-ai/cropsense/internal/buildconfig.version=v1.2.0
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the release version baked into the binary.
func Version() string {
	return version
}

// Commit returns the git commit the binary was built from.
func Commit() string {
	return commit
}
