package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Name is the server name reported to clients.
const Name = "video-transcriber-mcp"

var (
	// Set at build time using -ldflags.
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

// Info is the build identity.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// GetVersionInfo merges the link-time values with the toolchain's build
// info. Link-time values win.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildInfo(info, bi)
	}

	if info.BuildDate.IsZero() {
		info.BuildDate = time.Now().UTC()
		info.BuildTime = info.BuildDate.Format(time.RFC3339)
	}
	return info
}

func applyBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.GoVersion == "" {
		info.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuildDate = t
					info.BuildTime = s.Value
				}
			}
		}
	}
}

// GetShortVersion is the version reported in the initialize handshake:
// "1.2.0", or "dev-abc1234[-dirty]" for untagged builds.
func GetShortVersion() string {
	info := GetVersionInfo()
	if info.IsRelease || info.GitCommit == "" {
		return info.Version
	}
	if info.IsDirty {
		return fmt.Sprintf("%s-%s-dirty", info.Version, info.GitCommit)
	}
	return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
}

// GetFullVersion is the line printed by --version.
func GetFullVersion() string {
	info := GetVersionInfo()
	out := fmt.Sprintf("%s %s", Name, GetShortVersion())
	if info.GitBranch != "" && info.GitBranch != "main" && info.GitBranch != "master" {
		out += " (" + info.GitBranch + ")"
	}
	return out + fmt.Sprintf(" built %s with %s", info.BuildDate.UTC().Format("2006-01-02T15:04:05Z"), info.GoVersion)
}

// UserAgent identifies the server on outbound HTTP requests.
func UserAgent() string {
	return Name + "/" + GetShortVersion()
}
