package output

import (
	"fmt"
	"strings"
)

// Format is a transcript file format.
type Format string

const (
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

var allFormats = []Format{FormatText, FormatJSON, FormatMarkdown}

// AllFormats returns every format in canonical order.
func AllFormats() []Format {
	out := make([]Format, len(allFormats))
	copy(out, allFormats)
	return out
}

// ParseFormats validates names and returns them deduplicated in canonical
// order. An empty list selects every format.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return AllFormats(), nil
	}
	want := make(map[Format]bool, len(names))
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if f == "markdown" {
			f = FormatMarkdown
		}
		if !f.Valid() {
			return nil, fmt.Errorf("unknown output format %q (expected txt, json or md)", n)
		}
		want[f] = true
	}
	out := make([]Format, 0, len(want))
	for _, f := range allFormats {
		if want[f] {
			out = append(out, f)
		}
	}
	return out, nil
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	for _, known := range allFormats {
		if f == known {
			return true
		}
	}
	return false
}

// Label is the human name used in tool results.
func (f Format) Label() string {
	switch f {
	case FormatText:
		return "Text"
	case FormatJSON:
		return "JSON"
	case FormatMarkdown:
		return "Markdown"
	}
	return string(f)
}
