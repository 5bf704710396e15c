// Package version provides application version and build info.
package version

import "runtime/debug"

// Version is the current version of the application.
// It can be overridden by ldflags at build time.
var Version = "dev"

// GetInfo returns a version string including the VCS revision when available.
func GetInfo() string {
	revision := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				revision = setting.Value
			}
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision == "" {
		return Version
	}
	return Version + "-" + revision
}
