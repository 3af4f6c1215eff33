package mcp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"
)

type testChannel struct {
	scope     string
	streaming bool
	in        chan []byte
	out       chan []byte
}

func newTestChannel(scope string, streaming bool) *testChannel {
	return &testChannel{scope: scope, streaming: streaming, in: make(chan []byte, 16), out: make(chan []byte, 128)}
}

func (c *testChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *testChannel) Send(_ context.Context, msg []byte) error {
	c.out <- append([]byte(nil), msg...)
	return nil
}

func (c *testChannel) SupportsStreaming() bool { return c.streaming }
func (c *testChannel) Session() string         { return c.scope }

func (c *testChannel) push(frame string) { c.in <- []byte(frame) }

type message struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	} `json:"error"`
}

func decodeMessage(t *testing.T, raw []byte) message {
	t.Helper()
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

func (c *testChannel) next(t *testing.T) message {
	t.Helper()
	select {
	case raw := <-c.out:
		return decodeMessage(t, raw)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message")
		return message{}
	}
}

// response skips notifications and returns the next response.
func (c *testChannel) response(t *testing.T) (message, []message) {
	t.Helper()
	var notes []message
	for {
		m := c.next(t)
		if m.Method == "" {
			return m, notes
		}
		notes = append(notes, m)
	}
}

func serve(t *testing.T, r *Router, ch *testChannel) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, ch) }()
	return func() {
		close(ch.in)
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after EOF")
		}
		stop()
	}
}
