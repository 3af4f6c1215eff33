package session

import (
	"encoding/json"
	"sync"
	"time"
)

// ClientInfo identifies the client application.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Capabilities is what the client announced in initialize.
type Capabilities struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ClientInfo      ClientInfo      `json:"clientInfo"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
}

// Sink receives events for one in-flight request. It reports whether the
// payload was delivered.
type Sink func(payload []byte) bool

type subscription struct {
	sink Sink
}

// Session is one HTTP client's conversation with the server.
type Session struct {
	id      string
	caps    Capabilities
	created time.Time

	mu         sync.Mutex
	lastActive time.Time
	closed     bool
	subs       map[string]*subscription
}

func newSession(id string, caps Capabilities, now time.Time) *Session {
	return &Session{
		id:         id,
		caps:       caps,
		created:    now,
		lastActive: now,
		subs:       make(map[string]*subscription),
	}
}

// ID returns the opaque session id.
func (s *Session) ID() string { return s.id }

// Capabilities returns the negotiated client capabilities.
func (s *Session) Capabilities() Capabilities { return s.caps }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.created }

// LastActive returns the time of the last request or delivered event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touch(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.lastActive = now
	return true
}

// expire closes the session when it has been inactive for longer than
// timeout. In-flight subscriptions and a connected standing stream keep it
// alive. Check and close happen under one lock so a concurrent touch wins.
func (s *Session) expire(now time.Time, timeout time.Duration, streaming bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || streaming || len(s.subs) > 0 || now.Sub(s.lastActive) <= timeout {
		return false
	}
	s.closed = true
	s.subs = nil
	return true
}

// close marks the session closed and drops its subscriptions. It reports
// whether this call closed it.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.subs = nil
	return true
}
