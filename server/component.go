package server

import (
	"context"
	"fmt"

	"github.com/kbukum/video-transcriber-mcp/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component adapts Server to the component lifecycle.
type Component struct {
	server *Server
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name implements component.Component.
func (c *Component) Name() string { return componentName }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }

// Stop implements component.Component.
func (c *Component) Stop(ctx context.Context) error { return c.server.Stop(ctx) }

// Health implements component.Component.
func (c *Component) Health(_ context.Context) component.Health {
	if !c.server.Running() {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusUnhealthy,
			Message: "listener not bound",
		}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: c.server.Addr()}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	cfg := c.server.config
	details := fmt.Sprintf("%s %s", cfg.Address(), cfg.TLS.Mode())
	if cfg.Auth.Enabled() {
		details += fmt.Sprintf(" auth=JWT(%s)", cfg.Auth.Method)
	}
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: details,
		Port:    cfg.Port,
	}
}

// Routes implements component.RouteProvider.
func (c *Component) Routes() []component.Route {
	return summaryRoutes(c.server.engine.Routes())
}
