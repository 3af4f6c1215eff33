package sse

import (
	"sync"

	"github.com/kbukum/video-transcriber-mcp/logger"
)

// ClientBuffer is the number of events queued for a slow client before
// new events are dropped.
const ClientBuffer = 256

// Client is one connected event stream.
type Client struct {
	id        string
	metadata  map[string]string
	events    chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) {
		c.metadata[key] = value
	}
}

// WithSessionID tags the client with the session it belongs to.
func WithSessionID(sessionID string) ClientOption {
	return WithMetadata("session_id", sessionID)
}

// NewClient creates a client with a ClientBuffer-slot queue.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		events:   make(chan []byte, ClientBuffer),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Metadata returns a metadata value.
func (c *Client) Metadata(key string) string { return c.metadata[key] }

// SessionID returns the session the client belongs to.
func (c *Client) SessionID() string { return c.metadata["session_id"] }

// Events returns the queue the stream drains.
func (c *Client) Events() <-chan []byte { return c.events }

// Closed is closed once the client is disconnected.
func (c *Client) Closed() <-chan struct{} { return c.closed }

// Send queues data without blocking. It returns false when the client is
// gone or its queue is full.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.events <- data:
		return true
	default:
		logger.Warn("sse client queue full, dropping event", logger.Fields("client_id", c.id))
		return false
	}
}

// Close disconnects the client. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Hub tracks connected clients by id. At most one client holds an id;
// registering a new one disconnects the old.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	stopped bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds client, replacing and disconnecting any client with the
// same id. It returns false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		client.Close()
		return false
	}
	if old, ok := h.clients[client.id]; ok && old != client {
		old.Close()
	}
	h.clients[client.id] = client
	logger.Debug("sse client registered", logger.Fields("client_id", client.id, "total_clients", len(h.clients)))
	return true
}

// Unregister removes client if it still holds its id.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[client.id]; ok && cur == client {
		delete(h.clients, client.id)
	}
	client.Close()
}

// SendTo queues data for the client with id. It returns false when no such
// client is connected or its queue is full.
func (h *Hub) SendTo(id string, data []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.Send(data)
}

// Disconnect closes the client with id. It reports whether one was connected.
func (h *Hub) Disconnect(id string) bool {
	h.mu.Lock()
	client, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		client.Close()
	}
	return ok
}

// Stop disconnects every client and refuses new ones. Safe to call
// multiple times.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connected reports whether a client holds id.
func (h *Hub) Connected(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[id]
	return ok
}
