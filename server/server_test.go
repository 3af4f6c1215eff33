package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/video-transcriber-mcp/component"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/security"
	"github.com/kbukum/video-transcriber-mcp/security/tlstest"
)

func testConfig() Config {
	return Config{Host: "127.0.0.1", Port: 0, ReadTimeout: 5, IdleTimeout: 5, MaxBodySize: "1MB"}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Address() != "127.0.0.1:8080" {
		t.Errorf("expected 127.0.0.1:8080, got %q", cfg.Address())
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("expected no write timeout, got %d", cfg.WriteTimeout)
	}
	if cfg.ReadTimeout != 30 || cfg.IdleTimeout != 120 {
		t.Errorf("unexpected timeouts read=%d idle=%d", cfg.ReadTimeout, cfg.IdleTimeout)
	}
	if cfg.MaxBodySize != "1MB" {
		t.Errorf("expected 1MB, got %q", cfg.MaxBodySize)
	}
	if cfg.Auth.Enabled() {
		t.Error("expected auth disabled without a secret")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"bad port", func(c *Config) { c.Port = 70000 }, "server.port"},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -1 }, "server.read_timeout"},
		{"bad body size", func(c *Config) { c.MaxBodySize = "huge" }, "server.max_body_size"},
		{"bad auth method", func(c *Config) { c.Auth.Secret = "s"; c.Auth.Method = "RS256" }, "server.auth"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{}
			cfg.ApplyDefaults()
			tc.mut(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCORSDefaultsExposeSessionHeader(t *testing.T) {
	cfg := Config{}
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.ApplyDefaults()
	if len(cfg.CORS.ExposedHeaders) != 1 || cfg.CORS.ExposedHeaders[0] != HeaderSessionID {
		t.Errorf("expected %s exposed, got %v", HeaderSessionID, cfg.CORS.ExposedHeaders)
	}
}

func TestServerLifecycle(t *testing.T) {
	srv := New(testConfig(), logger.NewNop())
	srv.ApplyDefaults("video-transcriber-mcp", nil, nil)
	comp := NewComponent(srv)

	if h := comp.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %q", h.Status)
	}
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer comp.Stop(context.Background()) //nolint:errcheck

	if h := comp.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %q", h.Status)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected request id header")
	}

	if err := comp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if srv.Running() {
		t.Error("expected listener released after stop")
	}
}

func TestServerTLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	cfg := testConfig()
	cfg.TLS = security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}
	srv := New(cfg, logger.NewNop())
	srv.ApplyDefaults("video-transcriber-mcp", nil, nil)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop(context.Background()) //nolint:errcheck

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig:   &tls.Config{RootCAs: certs.CertPool, MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: true,
	}}
	resp, err := client.Get("https://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.ProtoMajor != 2 {
		t.Errorf("expected HTTP/2 over TLS, got %s", resp.Proto)
	}
	if d := NewComponent(srv).Describe(); !strings.Contains(d.Details, "tls") {
		t.Errorf("expected tls in description, got %q", d.Details)
	}
}

func TestServerStartRejectsMissingCertificate(t *testing.T) {
	cfg := testConfig()
	cfg.TLS = security.TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	srv := New(cfg, logger.NewNop())
	if err := srv.Start(context.Background()); err == nil {
		_ = srv.Stop(context.Background())
		t.Fatal("expected Start to fail")
	}
	if srv.Running() {
		t.Error("expected no listener")
	}
}

func TestHandlerServesRoutes(t *testing.T) {
	srv := New(testConfig(), logger.NewNop())
	srv.ApplyDefaults("svc", nil, func() map[string]any { return map[string]any{"transport": "http"} })

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/info", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["transport"] != "http" {
		t.Errorf("expected transport field, got %v", body["transport"])
	}
}

func TestRoutesSummaryOrder(t *testing.T) {
	srv := New(testConfig(), logger.NewNop())
	srv.RegisterDefaultEndpoints("svc", nil, nil)
	noop := func(*gin.Context) {}
	srv.GinEngine().DELETE("/mcp", noop)
	srv.GinEngine().POST("/mcp", noop)
	srv.GinEngine().GET("/mcp", noop)

	routes := NewComponent(srv).Routes()
	var got []string
	for _, r := range routes {
		got = append(got, r.Method+" "+r.Path)
	}
	want := "GET /mcp,POST /mcp,DELETE /mcp,GET /health,GET /info"
	if strings.Join(got, ",") != want {
		t.Fatalf("expected %s, got %s", want, strings.Join(got, ","))
	}
	if !strings.HasSuffix(routes[3].Handler, "⚙️") {
		t.Errorf("expected system route marker, got %q", routes[3].Handler)
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := map[string]string{
		"github.com/kbukum/video-transcriber-mcp/transport.(*HTTPHandler).post-fm": "HTTPHandler.post",
		"github.com/kbukum/video-transcriber-mcp/server/endpoint.Health.func1":     "health",
		"main.handler": "handler",
	}
	for in, want := range tests {
		if got := formatHandlerName(in); got != want {
			t.Errorf("formatHandlerName(%q): expected %q, got %q", in, want, got)
		}
	}
}
