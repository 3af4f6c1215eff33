package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/server/endpoint"
	"github.com/kbukum/video-transcriber-mcp/server/middleware"
)

// HeaderSessionID carries the MCP session id on requests and on the
// initialize response.
const HeaderSessionID = "Mcp-Session-Id"

const shutdownGrace = 5 * time.Second

// Server is the HTTP channel's listener: a Gin engine behind HTTP/2 so
// clients can hold many concurrent event streams over one connection.
// HTTP/2 runs over TLS when a certificate is configured and as h2c
// otherwise.
type Server struct {
	httpServer *http.Server
	h2         *http2.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu       sync.RWMutex
	listener net.Listener
}

// New creates a Server. No middleware is applied yet; see ApplyDefaults.
func New(cfg Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}

	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           h2c.NewHandler(engine, h2s),
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		h2:         h2s,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, h2c included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the port and serves in the background. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	tlsConfig, err := s.config.TLS.Build()
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	if tlsConfig != nil {
		s.httpServer.TLSConfig = tlsConfig
		if err := http2.ConfigureServer(s.httpServer, s.h2); err != nil {
			_ = listener.Close()
			return fmt.Errorf("server: configure http2: %w", err)
		}
		listener = tls.NewListener(listener, s.httpServer.TLSConfig)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String(), "mode", s.config.TLS.Mode()))
	return nil
}

// Stop shuts the server down, waiting up to five seconds for in-flight
// requests. Open event streams are cut when the deadline passes.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("graceful shutdown incomplete, closing", logger.Fields(logger.FieldError, err.Error()))
		if cerr := s.httpServer.Close(); cerr != nil {
			return fmt.Errorf("server shutdown error: %w", cerr)
		}
	}
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
	return nil
}

// Running reports whether the listener is bound.
func (s *Server) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listener != nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware installs recovery, request ids, CORS when configured,
// the body size limit and request logging.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	if s.config.CORS.Enabled() {
		s.engine.Use(middleware.GinCORS(&s.config.CORS))
	}
	if s.config.MaxBodySize != "" {
		s.engine.Use(middleware.GinBodySizeLimit(s.config.MaxBodySize))
	}
	s.engine.Use(middleware.RequestLogger(s.log))
}

// RegisterDefaultEndpoints registers /health and /info.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker, info endpoint.InfoProvider) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/info", endpoint.Info(serviceName, info))
}

// ApplyDefaults applies the middleware stack and registers the default
// endpoints.
func (s *Server) ApplyDefaults(serviceName string, checker endpoint.HealthChecker, info endpoint.InfoProvider) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(serviceName, checker, info)
}
