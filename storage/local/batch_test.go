package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestBatchCommit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewStorage(dir)
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := s.NewBatch()
	for name, body := range map[string]string{"a.txt": "new a", "a.md": "new md"} {
		if err := b.Add(ctx, name, strings.NewReader(body)); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}
	if got := readFile(t, filepath.Join(dir, "a.txt")); got != "old" {
		t.Errorf("expected target untouched before commit, got %q", got)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "a.txt")); got != "new a" {
		t.Errorf("expected replaced a.txt, got %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected only the two targets left, got %d entries", len(entries))
	}
}

func TestBatchCommitFailureRestoresTargets(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewStorage(dir)
	for _, name := range []string{"a.txt", "a.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("kept "+name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	b := s.NewBatch()
	if err := b.Add(ctx, "a.txt", strings.NewReader("new")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add(ctx, "a.json", strings.NewReader("{}")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// the second rename fails after the first target was replaced
	if err := os.Remove(b.files[1].tmp); err != nil {
		t.Fatal(err)
	}

	if err := b.Commit(); err == nil {
		t.Fatal("expected commit to fail")
	}
	for _, name := range []string{"a.txt", "a.json"} {
		if got := readFile(t, filepath.Join(dir, name)); got != "kept "+name {
			t.Errorf("expected %s restored, got %q", name, got)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected no staging leftovers, got %d entries", len(entries))
	}
}

func TestBatchRejectsOccupiedTarget(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStorage(dir)
	if err := os.Mkdir(filepath.Join(dir, "a.md"), 0o755); err != nil {
		t.Fatal(err)
	}
	b := s.NewBatch()
	if err := b.Add(context.Background(), "a.md", strings.NewReader("x")); err == nil {
		t.Fatal("expected a directory target to be rejected")
	}
	b.Discard()
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected nothing staged, got %d entries", len(entries))
	}
}
