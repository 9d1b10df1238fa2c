// Package version reports which topobench build produced a results log.
//
// Release builds set Version, GitCommit and BuildTime with -ldflags "-X".
// Otherwise the commit and time come from the VCS stamp the go command
// embeds, so local builds are still traceable.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const unknown = "unknown"

// Set at link time
var (
	Version   = "v0.3.0-beta"
	GitCommit = unknown
	BuildTime = unknown
)

// analyzerModule decides what the extract command and oracle provider see
const analyzerModule = "golang.org/x/tools"

// readBuildInfo is replaced in tests
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary
type Info struct {
	Version    string `json:"version"`
	Prerelease bool   `json:"prerelease"`
	Commit     string `json:"commit"`
	Modified   bool   `json:"modified"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	// Analyzer is the x/tools version used for call graph extraction
	Analyzer string `json:"analyzer"`
}

// Get collects build information, preferring link-time values over the
// embedded VCS stamp
func Get() Info {
	info := Info{
		Version:    Version,
		Prerelease: IsPrerelease(),
		Commit:     GitCommit,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Analyzer:   unknown,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == unknown {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		if dep.Path == analyzerModule {
			info.Analyzer = dep.Version
			if dep.Replace != nil {
				info.Analyzer = dep.Replace.Version + " (replaced)"
			}
		}
	}
	return info
}

// Short is the version plus an abbreviated commit, e.g. "v0.3.0 (0123456+)".
// A trailing + marks a build from a modified tree.
func (i Info) Short() string {
	if i.Commit == unknown || len(i.Commit) < 7 {
		return i.Version
	}
	dirty := ""
	if i.Modified {
		dirty = "+"
	}
	return fmt.Sprintf("%s (%s%s)", i.Version, i.Commit[:7], dirty)
}

func (i Info) String() string {
	return fmt.Sprintf("topobench %s\nBuilt: %s\nGo: %s\nPlatform: %s\nAnalyzer: %s %s",
		i.Short(), i.BuildTime, i.GoVersion, i.Platform, analyzerModule, i.Analyzer)
}

// IsPrerelease reports whether Version carries a prerelease tag
func IsPrerelease() bool {
	_, pre, ok := strings.Cut(Version, "-")
	return ok && pre != ""
}
