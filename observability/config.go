package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// Config is the observability section of the service config.
type Config struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}

// Provider owns the SDK providers started by Init.
type Provider struct {
	shutdown []func(context.Context) error
}

// Init starts OTLP trace and metric export when cfg.Enabled. Otherwise the
// global no-op providers stay in place and instruments cost nothing.
func Init(ctx context.Context, cfg Config, service, version, environment string) (*Provider, error) {
	cfg.ApplyDefaults()
	p := &Provider{}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := NewResource(service, version, environment)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	tp, err := InitTracer(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	p.shutdown = append(p.shutdown, tp.Shutdown)

	mp, err := InitMeter(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = append(p.shutdown, mp.Shutdown)
	return p, nil
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
