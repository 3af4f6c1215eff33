package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Batch writes several files so that either all of them replace their
// targets or none of the targets change. Files are staged next to their
// targets and renamed into place by Commit; a target that already exists
// is kept aside until every rename has succeeded and put back otherwise.
type Batch struct {
	s     *Storage
	files []*stagedFile
}

type stagedFile struct {
	tmp    string
	target string
	backup string
	placed bool
}

// NewBatch starts an empty batch.
func (s *Storage) NewBatch() *Batch { return &Batch{s: s} }

// Add stages the contents of reader for path. A target occupied by
// anything but a regular file is rejected here, before anything changes.
func (b *Batch) Add(ctx context.Context, path string, reader io.Reader) error {
	fullPath, err := b.s.Resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if info, err := os.Lstat(fullPath); err == nil && !info.Mode().IsRegular() {
		return fmt.Errorf("storage: %s exists and is not a regular file", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: stat %s: %w", path, err)
	}
	tmp, err := writeTemp(fullPath, reader)
	if err != nil {
		return err
	}
	b.files = append(b.files, &stagedFile{tmp: tmp, target: fullPath})
	return nil
}

// Commit moves every staged file into place. On failure the targets are
// restored to what they were before the call.
func (b *Batch) Commit() error {
	for _, f := range b.files {
		if err := f.place(); err != nil {
			b.undo()
			return err
		}
	}
	for _, f := range b.files {
		if f.backup != "" {
			os.Remove(f.backup) //nolint:errcheck,gosec // stale backups only cost space
		}
	}
	b.files = nil
	return nil
}

// Discard removes the staged files without touching any target.
func (b *Batch) Discard() {
	for _, f := range b.files {
		os.Remove(f.tmp) //nolint:errcheck,gosec // best effort
	}
	b.files = nil
}

func (f *stagedFile) place() error {
	if _, err := os.Lstat(f.target); err == nil {
		f.backup = f.tmp + ".prev"
		if err := os.Rename(f.target, f.backup); err != nil {
			f.backup = ""
			return fmt.Errorf("storage: keep previous %s: %w", filepath.Base(f.target), err)
		}
	}
	if err := os.Rename(f.tmp, f.target); err != nil {
		return fmt.Errorf("storage: rename file: %w", err)
	}
	f.placed = true
	return nil
}

func (b *Batch) undo() {
	for i := len(b.files) - 1; i >= 0; i-- {
		f := b.files[i]
		if f.placed {
			os.Remove(f.target) //nolint:errcheck,gosec // replaced below or left absent
		}
		if f.backup != "" {
			os.Rename(f.backup, f.target) //nolint:errcheck,gosec // best effort restore
		}
		os.Remove(f.tmp) //nolint:errcheck,gosec // gone once placed
	}
	b.files = nil
}
