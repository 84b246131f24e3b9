// Package buildinfo holds version stamps for jcf --version. Release builds
// set them with -ldflags "-X github.com/brentwalther/jcf-sub000/internal/buildinfo.Version=...".
package buildinfo

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
