package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/video-transcriber-mcp/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	summary         io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger instead of building one from the
// config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithSummaryWriter sets where the startup summary is printed. The default
// is stderr; stdout may be carrying protocol traffic.
func WithSummaryWriter(w io.Writer) Option {
	return func(o *appOptions) { o.summary = w }
}
