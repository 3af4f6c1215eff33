package transcription

import (
	"context"
	"time"

	"github.com/kbukum/video-transcriber-mcp/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider

	// Transcribe starts transcription of req.AudioPath and returns a lazy
	// iterator over the resulting segments. The caller must Close it.
	Transcribe(ctx context.Context, req Request) (provider.Iterator[Segment], error)
}

// Settings is the engine configuration handed to every provider factory.
// Each provider reads the fields it understands.
type Settings struct {
	Binary      string
	Threads     int
	Timeout     time.Duration
	GracePeriod time.Duration
	SidecarURL  string
}

// Registry holds the transcription engine factories by name.
type Registry = provider.Registry[Settings, Provider]

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return provider.NewRegistry[Settings, Provider]()
}
