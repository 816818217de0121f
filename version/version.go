package version

var (
	// Version can also be set through tag release at build time
	semver   = "1.0.0"
	revision = "unknown"
)

// Get returns the release version.
func Get() string {
	return semver
}

func Commit() string {
	return revision
}
