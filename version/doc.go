// Package version provides build version information embedding.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/aiponge/servicekit/version.Version=1.0.0"
//
// When ldflags are absent, the fields are backfilled from the module
// build info recorded by the Go toolchain.
package version
