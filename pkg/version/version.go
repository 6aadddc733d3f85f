// Package version reports the build identity of the chartfang binary.
package version

import (
	"runtime/debug"
)

const unknown = "<unknown>"

// Set at link time with -ldflags "-X github.com/Sumatoshi-tech/chartfang/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// Info is the resolved build identity.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// Get resolves the build identity, falling back to module build info when the
// binary was built without ldflags.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = bi.GoVersion

	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == unknown {
				info.Date = s.Value
			}
		}
	}

	return info
}

// String formats the identity for `chartfang version`.
func (i Info) String() string {
	s := "chartfang " + i.Version + " (" + i.Commit + ", " + i.Date + ")"
	if i.GoVersion != "" {
		s += " " + i.GoVersion
	}

	return s
}
