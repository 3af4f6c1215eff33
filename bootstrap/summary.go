package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/video-transcriber-mcp/component"
)

// Summary is the startup banner: what runs, where, and whether it is
// healthy.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	details         []string
}

// NewSummary creates a summary for a service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// AddDetail adds a free-form "key: value" line, e.g. the transport or the
// output directory.
func (s *Summary) AddDetail(key, value string) {
	s.details = append(s.details, key+": "+value)
}

// Render writes the summary. Components implementing Describable and
// RouteProvider contribute their lines; health is read live.
func (s *Summary) Render(w io.Writer, registry *component.Registry) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.details) > 0 {
		fmt.Fprintf(w, "\n⚙️  Settings\n")
		writeTree(w, s.details)
	}
	if registry == nil {
		fmt.Fprintln(w)
		return
	}

	var infra []string
	var routes []string
	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			name := desc.Name
			if name == "" {
				name = c.Name()
			}
			line := fmt.Sprintf("%s [%s]: %s", name, desc.Type, desc.Details)
			if desc.Port > 0 {
				line += fmt.Sprintf(" (:%d)", desc.Port)
			}
			infra = append(infra, line)
		}
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				routes = append(routes, fmt.Sprintf("%-7s %s → %s", r.Method, r.Path, r.Handler))
			}
		}
	}
	if len(infra) > 0 {
		fmt.Fprintf(w, "\n📊 Components\n")
		writeTree(w, infra)
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		writeTree(w, routes)
	}

	health := registry.HealthAll(context.Background())
	if len(health) > 0 {
		lines := make([]string, 0, len(health))
		for _, h := range health {
			line := fmt.Sprintf("%s %s: %s", healthIcon(h.Status), h.Name, strings.ToLower(string(h.Status)))
			if h.Message != "" {
				line += " (" + h.Message + ")"
			}
			lines = append(lines, line)
		}
		fmt.Fprintf(w, "\n🏥 Health\n")
		writeTree(w, lines)
	}
	fmt.Fprintln(w)
}

func writeTree(w io.Writer, lines []string) {
	for i, l := range lines {
		prefix := "├──"
		if i == len(lines)-1 {
			prefix = "└──"
		}
		fmt.Fprintf(w, "   %s %s\n", prefix, l)
	}
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
