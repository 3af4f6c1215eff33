package mcp

import "context"

// Channel is one source of request frames and sink of outgoing messages.
type Channel interface {
	// Receive blocks for the next frame; io.EOF ends serving.
	Receive(ctx context.Context) ([]byte, error)
	// Send writes one encoded message. Implementations serialize writes.
	Send(ctx context.Context, msg []byte) error
	// SupportsStreaming reports whether notifications can be delivered
	// before the terminal response.
	SupportsStreaming() bool
	// Session is the channel's cancellation scope: the session id, or
	// "stdio".
	Session() string
}
