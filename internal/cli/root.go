package cli

import "github.com/matzehuels/ecomap/pkg/buildinfo"

// SetVersion overrides the build information displayed by --version.
// It is meant for builds that cannot inject the values with ldflags; empty
// arguments leave the current value in place.
//
// Parameters:
//   - v: semantic version string (e.g., "v1.2.3")
//   - c: git commit SHA (short or long form)
//   - d: build timestamp (e.g., "2025-12-20T14:32:01Z")
func SetVersion(v, c, d string) {
	if v != "" {
		buildinfo.Version = v
	}
	if c != "" {
		buildinfo.Commit = c
	}
	if d != "" {
		buildinfo.Date = d
	}
}
