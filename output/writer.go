package output

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/kbukum/video-transcriber-mcp/config"
	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/storage"
	"github.com/kbukum/video-transcriber-mcp/storage/local"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

// DefaultDir is where transcripts go when nothing else is configured.
const DefaultDir = "~/Downloads/video-transcripts"

// Artifact is one written transcript file.
type Artifact struct {
	JobID  string `json:"job_id"`
	Format Format `json:"format"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
	// URL is the mirrored copy, when a mirror is configured and the upload
	// succeeded.
	URL string `json:"url,omitempty"`
}

// commitMu serializes commits across writers, so two jobs on the same
// source never interleave their renames.
var commitMu sync.Mutex

// Writer persists rendered transcripts under one directory.
type Writer struct {
	store  *local.Storage
	mirror storage.Storage
	log    *logger.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMirror copies every transcript to store once the local files are
// committed. A failed copy is logged and leaves the local files in place.
func WithMirror(store storage.Storage) WriterOption {
	return func(w *Writer) { w.mirror = store }
}

// NewWriter creates a writer rooted at dir (~ is expanded). The directory
// is created on first write.
func NewWriter(dir string, log *logger.Logger, opts ...WriterOption) (*Writer, error) {
	if dir == "" {
		dir = DefaultDir
	}
	store, err := local.NewStorage(config.ExpandHome(dir))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	w := &Writer{store: store, log: log.WithComponent("output")}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the absolute output directory.
func (w *Writer) Dir() string { return w.store.BasePath() }

// Write renders doc in every format and stores the files. Either all
// files are written or none are: every format is staged first and the
// files are renamed into place together, so a failure leaves any earlier
// transcript of the same source untouched. Failures are PERSISTENCE_ERRORs
// noting that transcription itself succeeded.
func (w *Writer) Write(ctx context.Context, jobID string, doc Document, formats []Format) ([]Artifact, error) {
	rendered, err := Render(doc, formats)
	if err != nil {
		return nil, persistenceError(doc, err)
	}

	base := doc.BaseName()
	batch := w.store.NewBatch()
	artifacts := make([]Artifact, 0, len(formats))
	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			batch.Discard()
			return nil, err
		}
		name := base + "." + string(f)
		data := rendered[f]
		if err := batch.Add(ctx, name, bytes.NewReader(data)); err != nil {
			batch.Discard()
			return nil, persistenceError(doc, err)
		}
		full, _ := w.store.Resolve(name)
		artifacts = append(artifacts, Artifact{
			JobID:  jobID,
			Format: f,
			Path:   full,
			Size:   int64(len(data)),
			Digest: Digest(data),
		})
	}

	commitMu.Lock()
	err = batch.Commit()
	commitMu.Unlock()
	if err != nil {
		return nil, persistenceError(doc, err)
	}

	if w.mirror != nil {
		w.copyToMirror(ctx, base, rendered, artifacts)
	}

	w.log.Info("transcript written", logger.Fields(
		logger.FieldJobID, jobID,
		logger.FieldPath, filepath.Join(w.Dir(), base),
		"formats", len(artifacts),
	))
	return artifacts, nil
}

func (w *Writer) copyToMirror(ctx context.Context, base string, rendered map[Format][]byte, artifacts []Artifact) {
	for i := range artifacts {
		name := base + "." + string(artifacts[i].Format)
		if err := storage.UploadBytes(ctx, w.mirror, name, rendered[artifacts[i].Format]); err != nil {
			w.log.WithError(err).Warn("mirror upload failed", logger.Fields(logger.FieldPath, name))
			continue
		}
		url, err := w.mirror.URL(ctx, name)
		if err != nil {
			continue
		}
		artifacts[i].URL = url
	}
}

// Digest is the hex blake2b-256 of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func persistenceError(doc Document, cause error) *errors.AppError {
	msg := fmt.Sprintf("transcription succeeded (%d words) but saving the output files failed: %v",
		transcription.WordCount(doc.Transcript), cause)
	return errors.New(errors.ErrCodePersistence, msg, http.StatusInternalServerError).
		WithCause(cause).
		WithDetail("word_count", transcription.WordCount(doc.Transcript))
}

// Read returns the contents and MIME type of the transcript at absPath,
// which must lie inside the output directory.
func (w *Writer) Read(ctx context.Context, absPath string) ([]byte, string, error) {
	rel, err := w.store.Rel(absPath)
	if err != nil {
		return nil, "", err
	}
	data, err := storage.DownloadBytes(ctx, w.store, rel)
	if err != nil {
		return nil, "", err
	}
	return data, storage.ContentType(rel), nil
}

// Exists reports whether the output directory exists.
func (w *Writer) Exists() bool {
	info, err := os.Stat(w.Dir())
	return err == nil && info.IsDir()
}

func isTranscriptFile(name string, exts ...string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
