// Package version reports the incrkit build version.
package version

import (
	"runtime/debug"
)

// Build metadata, set with -ldflags "-X" at release time.
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// InitBinaryVersion fills unset metadata from the module build info embedded
// by `go install` and VCS stamping.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "<unknown>" {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == "<unknown>" {
				Date = s.Value
			}
		}
	}
}
