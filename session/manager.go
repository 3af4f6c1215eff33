package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/video-transcriber-mcp/component"
	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/observability"
	"github.com/kbukum/video-transcriber-mcp/sse"
	"github.com/kbukum/video-transcriber-mcp/validation"
)

// Config configures session expiry.
type Config struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records open sessions.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// Manager owns every HTTP session. Sessions live in a sync.Map and carry
// their own lock; no lock spans sessions.
type Manager struct {
	cfg     Config
	hub     *sse.Hub
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time

	sessions sync.Map // id -> *Session

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

var (
	_ component.Component   = (*Manager)(nil)
	_ component.Describable = (*Manager)(nil)
)

// NewManager creates a Manager. hub carries the standing event streams;
// session ids double as hub client ids.
func NewManager(cfg Config, hub *sse.Hub, log *logger.Logger, opts ...Option) *Manager {
	cfg.ApplyDefaults()
	if hub == nil {
		hub = sse.NewHub()
	}
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		cfg:  cfg,
		hub:  hub,
		log:  log.WithComponent("session"),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hub returns the hub standing streams register with.
func (m *Manager) Hub() *sse.Hub { return m.hub }

// Open creates a session for a client that completed initialize.
func (m *Manager) Open(ctx context.Context, caps Capabilities) (*Session, error) {
	s := newSession(uuid.NewString(), caps, m.now())
	if _, loaded := m.sessions.LoadOrStore(s.id, s); loaded {
		return nil, errors.Internal(fmt.Errorf("session id collision"))
	}
	m.metrics.RecordSessionOpen(ctx)
	m.log.Info("session opened", logger.Fields(
		logger.FieldSessionID, s.id,
		"client", caps.ClientInfo.Name,
		"protocol_version", caps.ProtocolVersion,
	))
	return s, nil
}

// Resume returns the session with id and refreshes its activity time.
// Unknown, closed and expired sessions are SESSION_NOT_FOUND.
func (m *Manager) Resume(id string) (*Session, error) {
	if !validation.IsUUID(id) {
		return nil, errors.SessionNotFound(id)
	}
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	s := v.(*Session)
	if m.expire(id, s) {
		return nil, errors.SessionNotFound(id)
	}
	if !s.touch(m.now()) {
		return nil, errors.SessionNotFound(id)
	}
	return s, nil
}

// Get returns the open session with id without refreshing it.
func (m *Manager) Get(id string) (*Session, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	if s.Closed() {
		return nil, false
	}
	return s, true
}

// Close tears the session down: subscriptions are dropped and its standing
// stream is disconnected. It reports whether a session was closed.
func (m *Manager) Close(id string) bool {
	v, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return false
	}
	s := v.(*Session)
	if !s.close() {
		return false
	}
	m.teardown(id, "session closed")
	return true
}

// expire closes s if it is still idle at the time of the call.
func (m *Manager) expire(id string, s *Session) bool {
	if !s.expire(m.now(), m.cfg.IdleTimeout, m.hub.Connected(id)) {
		return false
	}
	m.sessions.CompareAndDelete(id, s)
	m.teardown(id, "session expired")
	return true
}

func (m *Manager) teardown(id, msg string) {
	m.hub.Disconnect(id)
	m.metrics.RecordSessionClose(context.Background())
	m.log.Info(msg, logger.Fields(logger.FieldSessionID, id))
}

// Subscribe routes events for correlationID in session id to sink until
// the returned function is called.
func (m *Manager) Subscribe(id, correlationID string, sink Sink) (func(), error) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	s := v.(*Session)
	sub := &subscription{sink: sink}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.SessionNotFound(id)
	}
	s.subs[correlationID] = sub
	s.lastActive = m.now()
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.subs[correlationID]; ok && cur == sub {
			delete(s.subs, correlationID)
			if !s.closed {
				s.lastActive = m.now()
			}
		}
	}, nil
}

// Publish delivers payload to the subscriber of correlationID, falling
// back to the session's standing stream. It returns false when the session
// is gone or nobody is listening; nothing is buffered for later.
func (m *Manager) Publish(id, correlationID string, payload []byte) bool {
	v, ok := m.sessions.Load(id)
	if !ok {
		return false
	}
	s := v.(*Session)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	sub := s.subs[correlationID]
	s.mu.Unlock()

	if (sub != nil && sub.sink(payload)) || m.hub.SendTo(id, payload) {
		s.touch(m.now())
		return true
	}
	return false
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	n := 0
	m.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many it closed. Sessions with an in-flight request or a connected
// standing stream are not idle.
func (m *Manager) Sweep() int {
	n := 0
	m.sessions.Range(func(k, v any) bool {
		if m.expire(k.(string), v.(*Session)) {
			n++
		}
		return true
	})
	if n > 0 {
		m.log.Debug("expired idle sessions", logger.Fields("count", n))
	}
	return n
}

// Name implements component.Component.
func (m *Manager) Name() string { return "sessions" }

// Start runs the expiry sweep in the background.
func (m *Manager) Start(_ context.Context) error {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
	return nil
}

// Stop ends the sweep and closes every session.
func (m *Manager) Stop(_ context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
	m.sessions.Range(func(k, _ any) bool {
		m.Close(k.(string))
		return true
	})
	m.hub.Stop()
	return nil
}

// Health implements component.Component.
func (m *Manager) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    m.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d sessions, %d streams", m.Len(), m.hub.ClientCount()),
	}
}

// Describe implements component.Describable.
func (m *Manager) Describe() component.Description {
	return component.Description{
		Name:    "Sessions",
		Type:    "session",
		Details: fmt.Sprintf("idle_timeout=%s sweep=%s", m.cfg.IdleTimeout, m.cfg.SweepInterval),
	}
}
