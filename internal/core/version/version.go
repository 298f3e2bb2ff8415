// Package version reports what build of umbra is running
package version

import "runtime/debug"

// stamped with -ldflags "-X umbra/internal/core/version.version=v0.3.0 -X ...commit=... -X ...date=..."
var (
	version = "dev"
	commit  = ""
	date    = ""
)

// BuildInfo is served by /v1/health
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info falls back to the vcs settings the go tool embeds when ldflags were not used
func Info(service string) BuildInfo {
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	if bi.Commit == "" || bi.Date == "" {
		fromVCS(&bi)
	}
	return bi
}

func fromVCS(bi *BuildInfo) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && bi.Commit == "":
			bi.Commit = s.Value
		case s.Key == "vcs.time" && bi.Date == "":
			bi.Date = s.Value
		}
	}
}
