package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withLinkValues(t *testing.T, v, commit, built string) {
	t.Helper()
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = v, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })
}

func withBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	old := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = old })
}

var stamped = &debug.BuildInfo{
	Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "fedcba9876543210"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	},
	Deps: []*debug.Module{
		{Path: "github.com/spf13/cobra", Version: "v1.10.1"},
		{Path: "golang.org/x/tools", Version: "v0.36.0"},
	},
}

func TestGetFallsBackToVCSStamp(t *testing.T) {
	withLinkValues(t, "v1.2.3", unknown, unknown)
	withBuildInfo(t, stamped)

	info := Get()
	assert.Equal(t, "fedcba9876543210", info.Commit)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildTime)
	assert.True(t, info.Modified)
	assert.Equal(t, "v0.36.0", info.Analyzer)
	assert.False(t, info.Prerelease)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Equal(t, "v1.2.3 (fedcba9+)", info.Short())
	assert.Contains(t, info.String(), "Analyzer: golang.org/x/tools v0.36.0")
}

func TestGetPrefersLinkValues(t *testing.T) {
	withLinkValues(t, "v1.2.3", "0123456789abcdef", "2026-01-01T00:00:00Z")
	withBuildInfo(t, stamped)

	info := Get()
	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.Equal(t, "2026-01-01T00:00:00Z", info.BuildTime)
}

func TestGetWithoutBuildInfo(t *testing.T) {
	withLinkValues(t, "v1.2.3", unknown, unknown)
	withBuildInfo(t, nil)

	info := Get()
	assert.Equal(t, unknown, info.Analyzer)
	assert.Equal(t, "v1.2.3", info.Short())
	assert.Contains(t, info.String(), "topobench v1.2.3\n")
}

func TestIsPrerelease(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"v0.3.0-beta", true},
		{"v1.0.0-rc1", true},
		{"v2.0.0-alpha.1", true},
		{"v1.0.0", false},
		{"v1.0.0-", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			withLinkValues(t, tt.version, unknown, unknown)
			assert.Equal(t, tt.want, IsPrerelease())
		})
	}
}
