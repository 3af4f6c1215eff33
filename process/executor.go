package process

import (
	"context"
	"time"
)

// Executor runs commands. Collaborators that shell out depend on it so
// tests can substitute scripted results.
type Executor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) (*Result, error)

// Run calls f(ctx, cmd).
func (f ExecutorFunc) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// Config holds executor defaults.
type Config struct {
	// GracePeriod is the default grace period for SIGTERM→SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
	// Timeout is the default execution timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// Runner is the real Executor, applying Config defaults to each command.
type Runner struct {
	config Config
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{config: cfg}
}

// Run executes cmd, applying the runner's grace period and timeout.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 && r.config.GracePeriod > 0 {
		cmd.GracePeriod = r.config.GracePeriod
	}
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	return Run(ctx, cmd)
}

// WithTimeout returns a copy of the runner with a different timeout.
func (r *Runner) WithTimeout(d time.Duration) *Runner {
	cfg := r.config
	cfg.Timeout = d
	return &Runner{config: cfg}
}
