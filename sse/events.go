package sse

// Event names written on the wire.
const (
	// EventMessage carries one JSON-RPC envelope.
	EventMessage = "message"
	// EventKeepAlive is written as a comment so clients never see it.
	EventKeepAlive = "keepalive"
)

// DefaultKeepAlive is the interval between keepalive comments; shorter
// than typical proxy idle timeouts.
const DefaultKeepAlive = 30
