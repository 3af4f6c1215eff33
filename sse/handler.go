package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/video-transcriber-mcp/logger"
)

// WriteEvent writes one SSE frame. Multi-line data is split over several
// data: lines.
func WriteEvent(w io.Writer, event string, data []byte) error {
	var b bytes.Buffer
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}

// Stream is a response body written as an event stream. Writes are
// serialized so concurrent senders never interleave frames.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewStream sets the event-stream headers on w and disables its write
// deadline. It fails when w cannot flush.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: streaming not supported by %T", w)
	}
	// Streams are long-lived and must outlive the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Debug("sse: could not clear write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, flusher: flusher}, nil
}

// Send writes one event and flushes it.
func (s *Stream) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteEvent(s.w, event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// KeepAlive writes a comment line.
func (s *Stream) KeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, ": %s %d\n\n", EventKeepAlive, time.Now().Unix()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Serve registers client with hub and streams its events as message
// events until the request ends or the client is disconnected.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, client *Client, keepAlive time.Duration) {
	stream, err := NewStream(w)
	if err != nil {
		logger.Error("sse streaming unsupported", logger.Fields("client_id", client.ID(), logger.FieldError, err.Error()))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if !hub.Register(client) {
		return
	}
	defer hub.Unregister(client)

	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	logger.Debug("sse client connected", logger.Fields("client_id", client.ID(), "remote_addr", r.RemoteAddr))
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("sse client disconnected", logger.Fields("client_id", client.ID()))
			return
		case <-client.Closed():
			return
		case data := <-client.Events():
			if err := stream.Send(EventMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.KeepAlive(); err != nil {
				return
			}
		}
	}
}
