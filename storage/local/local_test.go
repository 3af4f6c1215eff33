package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/video-transcriber-mcp/storage"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(filepath.Join(t.TempDir(), "transcripts"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	if err := s.Upload(ctx, "abc-Title.txt", strings.NewReader("hello world")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	data, err := storage.DownloadBytes(ctx, s, "abc-Title.txt")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("expected 'hello world', got %q", data)
	}

	entries, _ := os.ReadDir(s.BasePath())
	if len(entries) != 1 {
		t.Errorf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestUploadOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())
	_ = storage.UploadBytes(ctx, s, "a.txt", []byte("first"))
	_ = storage.UploadBytes(ctx, s, "a.txt", []byte("second"))
	data, _ := storage.DownloadBytes(ctx, s, "a.txt")
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	full, err := s.Resolve("../../etc/passwd")
	if err != nil {
		t.Fatalf("cleaned path should stay inside root, got %v", err)
	}
	if !strings.HasPrefix(full, s.BasePath()) {
		t.Errorf("expected %q inside %q", full, s.BasePath())
	}
	if _, err := s.Rel("/etc/passwd"); !errors.Is(err, storage.ErrOutsideRoot) {
		t.Errorf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestStatAndExists(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())

	ok, err := s.Exists(ctx, "missing.md")
	if err != nil || ok {
		t.Fatalf("expected missing file, got ok=%v err=%v", ok, err)
	}
	if _, err := s.Stat(ctx, "missing.md"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = storage.UploadBytes(ctx, s, "x.md", []byte("# t"))
	info, err := s.Stat(ctx, "x.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 3 || info.ContentType != "text/markdown" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestListMissingRootIsEmpty(t *testing.T) {
	s, _ := NewStorage(filepath.Join(t.TempDir(), "nope"))
	files, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
	if _, err := os.Stat(s.BasePath()); !os.IsNotExist(err) {
		t.Error("listing must not create the root")
	}
}

func TestListSortedWithPrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStorage(t.TempDir())
	for _, name := range []string{"b-two.txt", "a-one.json", "a-one.txt", "c.log"} {
		_ = storage.UploadBytes(ctx, s, name, []byte(name))
	}

	files, err := s.List(ctx, "a-")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 || files[0].Path != "a-one.json" || files[1].Path != "a-one.txt" {
		t.Errorf("unexpected listing %+v", files)
	}
	if files[0].ContentType != "application/json" {
		t.Errorf("expected application/json, got %q", files[0].ContentType)
	}
}

func TestURL(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	u, err := s.URL(context.Background(), "x.txt")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if u != "file://"+filepath.Join(s.BasePath(), "x.txt") {
		t.Errorf("unexpected url %q", u)
	}
}
