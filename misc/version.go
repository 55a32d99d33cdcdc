// Package misc provides small helpers shared across the program which do not
// deserve a package of their own.
package misc

import (
	"runtime/debug"
)

const appName = "sbm"

// GetAppName returns short program name used for logging, temporary files and
// report naming.
func GetAppName() string {
	return appName
}

// GetVersion returns module version as recorded by the build system.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) > 0 {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns VCS revision this binary was built from if available.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 8 {
					return s.Value[:8]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}
