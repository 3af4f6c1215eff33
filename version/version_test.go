package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime, origGoVersion :=
		Version, GitCommit, GitBranch, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch, BuildTime, GoVersion = "dev", "", "", "", ""

	info := GetVersionInfo()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.BuildDate.IsZero() {
		t.Error("BuildDate should not be zero")
	}
}

func TestLinkTimeValuesWin(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, BuildTime, GoVersion = "1.2.0", "abc1234", "2026-01-15T10:30:00Z", "go1.26.0"

	info := GetVersionInfo()
	if info.GitCommit != "abc1234" {
		t.Errorf("expected commit 'abc1234', got %q", info.GitCommit)
	}
	if info.BuildDate.Year() != 2026 {
		t.Errorf("expected build year 2026, got %d", info.BuildDate.Year())
	}
	if !info.IsRelease {
		t.Error("expected a release")
	}
	if got := GetShortVersion(); got != "1.2.0" {
		t.Errorf("expected release short version '1.2.0', got %q", got)
	}
}

func TestShortVersionForDevBuild(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit = "dev", "abc1234"
	got := GetShortVersion()
	if !strings.HasPrefix(got, "dev-abc1234") {
		t.Errorf("expected 'dev-abc1234' prefix, got %q", got)
	}
}

func TestApplyBuildInfo(t *testing.T) {
	info := &Info{}
	applyBuildInfo(info, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-03-01T00:00:00Z"},
		},
	})
	if info.GitCommit != "0123456" {
		t.Errorf("expected truncated commit, got %q", info.GitCommit)
	}
	if !info.IsDirty {
		t.Error("expected dirty build")
	}
	if info.GoVersion != "go1.26.0" {
		t.Errorf("expected go1.26.0, got %q", info.GoVersion)
	}
	if info.BuildTime != "2026-03-01T00:00:00Z" {
		t.Errorf("expected vcs time, got %q", info.BuildTime)
	}
}

func TestFullVersionAndUserAgent(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch = "1.2.0", "abc1234", "feature-x"
	if full := GetFullVersion(); !strings.HasPrefix(full, "video-transcriber-mcp 1.2.0 (feature-x) built ") {
		t.Errorf("unexpected full version %q", full)
	}
	if ua := UserAgent(); ua != "video-transcriber-mcp/1.2.0" {
		t.Errorf("expected 'video-transcriber-mcp/1.2.0', got %q", ua)
	}
}
