package media

import (
	"path/filepath"
	"slices"
	"strings"
)

// SourceKind tells remote URLs from local files.
type SourceKind int

const (
	SourceRemote SourceKind = iota
	SourceLocal
)

func (k SourceKind) String() string {
	if k == SourceLocal {
		return "local"
	}
	return "remote"
}

// Source is the input of a job: a URL handed to the downloader or a path
// on the local filesystem.
type Source struct {
	Kind SourceKind
	Raw  string
}

// ParseSource classifies raw. Only http:// and https:// are remote;
// everything else is a local path.
func ParseSource(raw string) Source {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Source{Kind: SourceRemote, Raw: raw}
	}
	return Source{Kind: SourceLocal, Raw: raw}
}

// IsLocal reports whether the source is a local file.
func (s Source) IsLocal() bool { return s.Kind == SourceLocal }

var supportedExtensions = []string{
	// video
	".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv", ".wmv", ".m4v", ".mpeg", ".mpg", ".3gp", ".ts",
	// audio
	".mp3", ".wav", ".m4a", ".flac", ".ogg", ".opus", ".aac", ".wma",
}

// SupportedExtension reports whether path has a container extension the
// codec step accepts.
func SupportedExtension(path string) bool {
	return slices.Contains(supportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// SupportedExtensions returns the accepted local file extensions.
func SupportedExtensions() []string {
	return slices.Clone(supportedExtensions)
}
