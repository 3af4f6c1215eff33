package job

import (
	"context"
	"fmt"

	"github.com/kbukum/video-transcriber-mcp/component"
	"github.com/kbukum/video-transcriber-mcp/logger"
)

var (
	_ component.Component   = (*Orchestrator)(nil)
	_ component.Describable = (*Orchestrator)(nil)
)

// Name implements component.Component.
func (o *Orchestrator) Name() string { return "jobs" }

// Start implements component.Component. Jobs start on Submit.
func (o *Orchestrator) Start(_ context.Context) error { return nil }

// Stop cancels every running job and waits for them to finish or for ctx
// to end.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	jobs := make([]*Job, 0, len(o.active))
	for _, j := range o.active {
		jobs = append(jobs, j)
	}
	o.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
	for _, j := range jobs {
		select {
		case <-j.Done():
		case <-ctx.Done():
			return fmt.Errorf("jobs: %d still running: %w", o.Active(), ctx.Err())
		}
	}
	if len(jobs) > 0 {
		o.log.Info("cancelled running jobs", logger.Fields("count", len(jobs)))
	}
	return nil
}

// Health implements component.Component.
func (o *Orchestrator) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    o.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d running", o.Active()),
	}
}

// Describe implements component.Describable.
func (o *Orchestrator) Describe() component.Description {
	workDir := o.cfg.WorkDir
	if workDir == "" {
		workDir = "$TMPDIR"
	}
	return component.Description{
		Name:    "Jobs",
		Type:    "orchestrator",
		Details: fmt.Sprintf("work_dir=%s", workDir),
	}
}
