package probe

import (
	"fmt"
	"strings"
)

// Report is the outcome of CheckAll.
type Report struct {
	Entries []Entry `json:"entries"`
}

// AllCompatible reports whether every entry is present and compatible.
func (r Report) AllCompatible() bool {
	for _, e := range r.Entries {
		if e.Status != StatusOK {
			return false
		}
	}
	return true
}

// Filter returns the entries of one kind.
func (r Report) Filter(kind Kind) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Text renders the report for a tool result.
func (r Report) Text() string {
	var b strings.Builder
	b.WriteString("Dependency Check:\n\n")
	for _, e := range r.Filter(KindTool) {
		fmt.Fprintf(&b, "%s %s: %s", icon(e.Status), e.Name, e.Status)
		if e.Version != "" {
			fmt.Fprintf(&b, " (version %s)", e.Version)
		}
		if e.Detail != "" {
			fmt.Fprintf(&b, " - %s", e.Detail)
		}
		b.WriteByte('\n')
	}

	models := r.Filter(KindModel)
	if len(models) > 0 {
		b.WriteString("\nWhisper Models:\n")
		for _, e := range models {
			fmt.Fprintf(&b, "  %s %s: ", icon(e.Status), e.Name)
			switch e.Status {
			case StatusOK:
				fmt.Fprintf(&b, "%s (%.1f MB)", e.Path, float64(e.Size)/1_000_000)
			case StatusAbsent:
				b.WriteString("not installed")
			default:
				b.WriteString(e.Detail)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func icon(s Status) string {
	switch s {
	case StatusOK:
		return "✅"
	case StatusIncompatible:
		return "⚠️"
	default:
		return "❌"
	}
}
