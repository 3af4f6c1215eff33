package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/sse"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T) (*Manager, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewManager(Config{IdleTimeout: 10 * time.Minute}, sse.NewHub(), nil, WithClock(c.Now))
	return m, c
}

func TestOpenAndResume(t *testing.T) {
	m, c := newManager(t)
	s, err := m.Open(context.Background(), Capabilities{ProtocolVersion: "2024-11-05", ClientInfo: ClientInfo{Name: "test"}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.ID()) != 36 {
		t.Errorf("expected a UUID session id, got %q", s.ID())
	}

	c.Advance(5 * time.Minute)
	got, err := m.Resume(s.ID())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got != s {
		t.Error("expected the same session")
	}
	if !s.LastActive().Equal(c.Now()) {
		t.Errorf("expected last activity refreshed to %v, got %v", c.Now(), s.LastActive())
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	m, _ := newManager(t)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s, _ := m.Open(context.Background(), Capabilities{})
		if seen[s.ID()] {
			t.Fatalf("duplicate session id %q", s.ID())
		}
		seen[s.ID()] = true
	}
	if m.Len() != 100 {
		t.Errorf("expected 100 sessions, got %d", m.Len())
	}
}

func TestResumeUnknownOrClosed(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.Resume("nope"); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("expected SESSION_NOT_FOUND, got %v", err)
	}

	s, _ := m.Open(context.Background(), Capabilities{})
	if !m.Close(s.ID()) {
		t.Error("expected close to succeed")
	}
	if m.Close(s.ID()) {
		t.Error("expected second close to be a no-op")
	}
	if _, err := m.Resume(s.ID()); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("expected SESSION_NOT_FOUND after close, got %v", err)
	}
	if !s.Closed() {
		t.Error("expected session marked closed")
	}
}

func TestResumeExpired(t *testing.T) {
	m, c := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	c.Advance(11 * time.Minute)
	if _, err := m.Resume(s.ID()); !errors.Is(err, errors.ErrCodeSessionNotFound) {
		t.Errorf("expected SESSION_NOT_FOUND for an expired session, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected expired session removed, got %d", m.Len())
	}
}

func TestSweep(t *testing.T) {
	m, c := newManager(t)
	idle, _ := m.Open(context.Background(), Capabilities{})
	c.Advance(6 * time.Minute)
	busy, _ := m.Open(context.Background(), Capabilities{})
	c.Advance(5 * time.Minute)

	if n := m.Sweep(); n != 1 {
		t.Errorf("expected 1 expired session, got %d", n)
	}
	if _, ok := m.Get(idle.ID()); ok {
		t.Error("expected idle session gone")
	}
	if _, ok := m.Get(busy.ID()); !ok {
		t.Error("expected active session kept")
	}
}

func TestSweepKeepsStreamingSession(t *testing.T) {
	m, c := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	unsubscribe, err := m.Subscribe(s.ID(), "1", func([]byte) bool { return true })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < 11; i++ {
		c.Advance(time.Minute)
		if !m.Publish(s.ID(), "1", []byte("progress")) {
			t.Fatalf("expected progress %d delivered", i)
		}
	}
	c.Advance(11 * time.Minute)
	if n := m.Sweep(); n != 0 {
		t.Fatalf("expected a session with an in-flight request kept, swept %d", n)
	}
	if !m.Publish(s.ID(), "1", []byte("result")) {
		t.Error("expected the final response delivered")
	}

	unsubscribe()
	c.Advance(11 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Errorf("expected the session to expire once idle, swept %d", n)
	}
}

func TestSweepKeepsStandingStream(t *testing.T) {
	m, c := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	stream := sse.NewClient(s.ID())
	m.Hub().Register(stream)

	c.Advance(20 * time.Minute)
	if n := m.Sweep(); n != 0 {
		t.Errorf("expected a connected stream to keep the session, swept %d", n)
	}
	m.Hub().Unregister(stream)
	if n := m.Sweep(); n != 1 {
		t.Errorf("expected expiry after the stream left, swept %d", n)
	}
}

func TestExpireRechecksActivity(t *testing.T) {
	m, c := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	c.Advance(11 * time.Minute)

	// A request lands between the sweep's scan and its close.
	s.touch(c.Now())
	if m.expire(s.ID(), s) {
		t.Fatal("expected a freshly touched session to survive")
	}
	if _, err := m.Resume(s.ID()); err != nil {
		t.Errorf("expected session still usable, got %v", err)
	}
}

func TestPublishPrefersSubscriber(t *testing.T) {
	m, _ := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	stream := sse.NewClient(s.ID())
	m.Hub().Register(stream)

	var got [][]byte
	unsubscribe, err := m.Subscribe(s.ID(), "7", func(p []byte) bool {
		got = append(got, p)
		return true
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if !m.Publish(s.ID(), "7", []byte("progress")) {
		t.Error("expected delivery to subscriber")
	}
	if len(got) != 1 || len(stream.Events()) != 0 {
		t.Errorf("expected event on the request stream only, got %d/%d", len(got), len(stream.Events()))
	}

	unsubscribe()
	if !m.Publish(s.ID(), "7", []byte("late")) {
		t.Error("expected fallback to the standing stream")
	}
	if len(stream.Events()) != 1 {
		t.Errorf("expected 1 event on the standing stream, got %d", len(stream.Events()))
	}
}

func TestPublishDropsWithoutListener(t *testing.T) {
	m, _ := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	if m.Publish(s.ID(), "1", []byte("x")) {
		t.Error("expected drop when nothing listens")
	}
	if m.Publish("unknown", "1", []byte("x")) {
		t.Error("expected drop for unknown session")
	}
}

func TestCloseDropsPushes(t *testing.T) {
	m, _ := newManager(t)
	s, _ := m.Open(context.Background(), Capabilities{})
	stream := sse.NewClient(s.ID())
	m.Hub().Register(stream)
	delivered := 0
	if _, err := m.Subscribe(s.ID(), "3", func([]byte) bool { delivered++; return true }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	m.Close(s.ID())

	select {
	case <-stream.Closed():
	default:
		t.Error("expected the standing stream to be disconnected")
	}
	if m.Publish(s.ID(), "3", []byte("after close")) {
		t.Error("expected no delivery after close")
	}
	if delivered != 0 {
		t.Errorf("expected no events delivered after close, got %d", delivered)
	}
	if _, err := m.Subscribe(s.ID(), "4", func([]byte) bool { return true }); err == nil {
		t.Error("expected subscribe on a closed session to fail")
	}
}

func TestLifecycle(t *testing.T) {
	m := NewManager(Config{IdleTimeout: time.Millisecond, SweepInterval: 5 * time.Millisecond}, nil, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s, _ := m.Open(context.Background(), Capabilities{})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := m.Get(s.ID()); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the sweep to expire the session")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Open(context.Background(), Capabilities{})
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected all sessions closed on stop, got %d", m.Len())
	}
}
