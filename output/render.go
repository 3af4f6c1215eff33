package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/transcription"
)

const maxNameRunes = 150

// Document is everything a transcript file is rendered from.
type Document struct {
	Metadata   media.Metadata
	Transcript string
	Segments   []transcription.Segment
	Model      string
}

// BaseName is the extension-less file name for doc: the sanitized
// "<video id>-<title>". The same source always maps to the same name.
func (d Document) BaseName() string {
	return Sanitize(d.Metadata.VideoID + "-" + d.Metadata.Title)
}

// Sanitize replaces path separators, reserved and control characters with
// '-' and truncates to 150 runes.
func Sanitize(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameRunes {
			break
		}
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
		n++
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "transcript"
	}
	return out
}

// Render produces the file contents for each format. It has no side
// effects and identical input yields identical bytes.
func Render(doc Document, formats []Format) (map[Format][]byte, error) {
	out := make(map[Format][]byte, len(formats))
	for _, f := range formats {
		var (
			data []byte
			err  error
		)
		switch f {
		case FormatText:
			data = []byte(doc.Transcript)
		case FormatJSON:
			data, err = renderJSON(doc)
		case FormatMarkdown:
			data = renderMarkdown(doc)
		default:
			err = fmt.Errorf("unknown output format %q", f)
		}
		if err != nil {
			return nil, err
		}
		out[f] = data
	}
	return out, nil
}

type jsonDocument struct {
	Metadata   media.Metadata          `json:"metadata"`
	Transcript string                  `json:"transcript"`
	Segments   []transcription.Segment `json:"segments"`
	Model      string                  `json:"model"`
}

func renderJSON(doc Document) ([]byte, error) {
	segments := doc.Segments
	if segments == nil {
		segments = []transcription.Segment{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonDocument{
		Metadata:   doc.Metadata,
		Transcript: doc.Transcript,
		Segments:   segments,
		Model:      doc.Model,
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderMarkdown(doc Document) []byte {
	m := doc.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "**Video:** %s\n", m.URL)
	fmt.Fprintf(&b, "**Platform:** %s\n", m.Platform)
	fmt.Fprintf(&b, "**Channel:** %s\n", m.Channel)
	fmt.Fprintf(&b, "**Video ID:** %s\n", m.VideoID)
	fmt.Fprintf(&b, "**Duration:** %ds\n", m.Duration)
	fmt.Fprintf(&b, "**Published:** %s\n\n", m.UploadDate)
	b.WriteString("---\n\n## Transcript\n\n")
	b.WriteString(doc.Transcript)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "*Transcribed using whisper.cpp - Model: %s*\n", doc.Model)
	return []byte(b.String())
}
