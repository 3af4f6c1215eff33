package output

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// File is a transcript file found in the output directory.
type File struct {
	Name     string
	Path     string
	Size     int64
	Modified time.Time
	MimeType string
}

// Group collects the files written for one video id.
type Group struct {
	VideoID string
	Title   string
	Files   []File
}

// Main returns the file that stands for the group, preferring .txt.
func (g Group) Main() File {
	for _, f := range g.Files {
		if strings.HasSuffix(f.Name, ".txt") {
			return f
		}
	}
	return g.Files[0]
}

// Extensions lists the group's file extensions without dots.
func (g Group) Extensions() []string {
	out := make([]string, 0, len(g.Files))
	for _, f := range g.Files {
		out = append(out, strings.TrimPrefix(filepath.Ext(f.Name), "."))
	}
	return out
}

// Files lists .txt, .md and .json files directly under the output
// directory, sorted by name.
func (w *Writer) Files(ctx context.Context) ([]File, error) {
	return w.files(ctx, ".txt", ".md", ".json")
}

// Groups groups .txt and .md files by the prefix before the first '-',
// sorted by video id.
func (w *Writer) Groups(ctx context.Context) ([]Group, error) {
	files, err := w.files(ctx, ".txt", ".md")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Group)
	var ids []string
	for _, f := range files {
		id, _, _ := strings.Cut(f.Name, "-")
		g, ok := byID[id]
		if !ok {
			g = &Group{VideoID: id}
			byID[id] = g
			ids = append(ids, id)
		}
		g.Files = append(g.Files, f)
	}
	sort.Strings(ids)

	groups := make([]Group, 0, len(ids))
	for _, id := range ids {
		g := byID[id]
		g.Title = titleFromName(g.Main().Name, id)
		groups = append(groups, *g)
	}
	return groups, nil
}

func (w *Writer) files(ctx context.Context, exts ...string) ([]File, error) {
	infos, err := w.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []File
	for _, info := range infos {
		if strings.ContainsRune(info.Path, filepath.Separator) || !isTranscriptFile(info.Path, exts...) {
			continue
		}
		full, err := w.store.Resolve(info.Path)
		if err != nil {
			continue
		}
		out = append(out, File{
			Name:     info.Path,
			Path:     full,
			Size:     info.Size,
			Modified: info.LastModified,
			MimeType: info.ContentType,
		})
	}
	return out, nil
}

func titleFromName(name, id string) string {
	title := strings.TrimPrefix(name, id+"-")
	title = strings.TrimSuffix(title, filepath.Ext(title))
	return strings.ReplaceAll(title, "-", " ")
}

// Describe is the resource description for f.
func (f File) Describe() string {
	return fmt.Sprintf("Transcript file (%.2f KB, modified %s)", float64(f.Size)/1024, f.Modified.Format("2006-01-02"))
}
