package sse

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientSend(t *testing.T) {
	client := NewClient("sess-1", WithSessionID("sess-1"))
	if client.SessionID() != "sess-1" {
		t.Errorf("expected session 'sess-1', got %q", client.SessionID())
	}
	if !client.Send([]byte("hello")) {
		t.Fatal("expected send to succeed")
	}
	select {
	case msg := <-client.Events():
		if string(msg) != "hello" {
			t.Errorf("expected 'hello', got %q", msg)
		}
	default:
		t.Error("expected message in queue")
	}
}

func TestClientSendQueueFull(t *testing.T) {
	client := NewClient("c")
	for i := 0; i < ClientBuffer; i++ {
		client.Send([]byte("msg"))
	}
	if client.Send([]byte("overflow")) {
		t.Error("expected send to fail when the queue is full")
	}
}

func TestClientSendAfterClose(t *testing.T) {
	client := NewClient("c")
	client.Close()
	client.Close()
	if client.Send([]byte("late")) {
		t.Error("expected send to fail after close")
	}
}

func TestHubSendTo(t *testing.T) {
	hub := NewHub()
	client := NewClient("sess-1")
	hub.Register(client)

	if !hub.SendTo("sess-1", []byte("x")) {
		t.Error("expected delivery to registered client")
	}
	if hub.SendTo("sess-2", []byte("x")) {
		t.Error("expected no delivery to unknown client")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHubRegisterReplaces(t *testing.T) {
	hub := NewHub()
	first := NewClient("sess-1")
	second := NewClient("sess-1")
	hub.Register(first)
	hub.Register(second)

	select {
	case <-first.Closed():
	default:
		t.Error("expected the replaced client to be closed")
	}
	hub.Unregister(first)
	if !hub.Connected("sess-1") {
		t.Error("unregistering a replaced client must not remove its successor")
	}
}

func TestHubDisconnectAndStop(t *testing.T) {
	hub := NewHub()
	a, b := NewClient("a"), NewClient("b")
	hub.Register(a)
	hub.Register(b)

	if !hub.Disconnect("a") {
		t.Error("expected disconnect to report a connected client")
	}
	if hub.Disconnect("a") {
		t.Error("expected second disconnect to be a no-op")
	}
	hub.Stop()
	hub.Stop()
	select {
	case <-b.Closed():
	default:
		t.Error("expected stop to close remaining clients")
	}
	if hub.Register(NewClient("c")) {
		t.Error("expected register to fail after stop")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvent(&buf, EventMessage, []byte(`{"jsonrpc":"2.0"}`)); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	want := "event: message\ndata: {\"jsonrpc\":\"2.0\"}\n\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}

	buf.Reset()
	_ = WriteEvent(&buf, "", []byte("a\nb"))
	if buf.String() != "data: a\ndata: b\n\n" {
		t.Errorf("expected multi-line data frame, got %q", buf.String())
	}
}

func TestServeStreamsEvents(t *testing.T) {
	hub := NewHub()
	client := NewClient("sess-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		Serve(hub, rec, req, client, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !hub.Connected("sess-1") {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.SendTo("sess-1", []byte(`{"n":1}`))
	time.Sleep(50 * time.Millisecond)
	hub.Disconnect("sess-1")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after disconnect")
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "event: message\ndata: {\"n\":1}\n\n") {
		t.Errorf("expected message frame in body, got %q", rec.Body.String())
	}
	if hub.Connected("sess-1") {
		t.Error("expected client to be unregistered")
	}
}
