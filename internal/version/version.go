// Package version reports the rfmsg build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time via ldflags:
//
//	go build -ldflags="-X github.com/pumpkit/rfmsg/internal/version.Version=v0.3.0 \
//	                   -X github.com/pumpkit/rfmsg/internal/version.Commit=abc1234"
//
// Unset values are filled from the binary's build info.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			v, c := fromBuildInfo(info)
			if Version == "" {
				Version = v
			}
			if Commit == "" {
				Commit = c
			}
		}
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo derives a version and short commit. Binaries installed with
// `go install ...@vX.Y.Z` carry the module version; local builds only have
// VCS stamps, so they get a dev version from the commit time.
func fromBuildInfo(info *debug.BuildInfo) (string, string) {
	var revision, modified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	commit := revision
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit != "" && modified == "true" {
		commit += "-dirty"
	}

	var v string
	switch {
	case info.Main.Version != "" && info.Main.Version != "(devel)":
		v = info.Main.Version
	case vcsTime != "":
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			v = fmt.Sprintf("dev-%s", t.Format("20060102"))
		}
	}
	return v, commit
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Details returns the version, commit and toolchain for `rfmsg version`.
func Details() map[string]string {
	return map[string]string{
		"Version":  Version,
		"Commit":   Commit,
		"Go":       runtime.Version(),
		"Platform": runtime.GOOS + "/" + runtime.GOARCH,
	}
}
