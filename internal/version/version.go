// Package version holds the build version, overridable with
// -ldflags "-X oligoscreen/internal/version.Version=...".
package version

var Version = "dev"
