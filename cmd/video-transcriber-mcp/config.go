package main

import (
	_ "embed"
	"fmt"

	"github.com/kbukum/video-transcriber-mcp/config"
	"github.com/kbukum/video-transcriber-mcp/engine"
	"github.com/kbukum/video-transcriber-mcp/job"
	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/observability"
	"github.com/kbukum/video-transcriber-mcp/output"
	"github.com/kbukum/video-transcriber-mcp/server"
	"github.com/kbukum/video-transcriber-mcp/session"
	"github.com/kbukum/video-transcriber-mcp/storage/s3"
	"github.com/kbukum/video-transcriber-mcp/version"
)

//go:embed config.yml
var defaultConfig []byte

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const defaultOutputDir = "~/Downloads/video-transcripts"

// Config is the full service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Transport     string               `yaml:"transport" mapstructure:"transport"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Session       session.Config       `yaml:"session" mapstructure:"session"`
	Output        OutputConfig         `yaml:"output" mapstructure:"output"`
	Models        model.Config         `yaml:"models" mapstructure:"models"`
	Media         media.Config         `yaml:"media" mapstructure:"media"`
	Engine        engine.Config        `yaml:"engine" mapstructure:"engine"`
	Inference     InferenceConfig      `yaml:"inference" mapstructure:"inference"`
	Jobs          job.Config           `yaml:"jobs" mapstructure:"jobs"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// OutputConfig selects where transcripts go and which formats are written
// when a request names none. A bucket under s3 mirrors every transcript
// there as well.
type OutputConfig struct {
	Dir     string    `yaml:"dir" mapstructure:"dir"`
	Formats []string  `yaml:"formats" mapstructure:"formats"`
	S3      s3.Config `yaml:"s3" mapstructure:"s3"`
}

// MirrorEnabled reports whether transcripts are copied to a bucket.
func (o *OutputConfig) MirrorEnabled() bool { return o.S3.Bucket != "" }

// InferenceConfig bounds concurrent speech-to-text runs. Zero means one
// per CPU.
type InferenceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ApplyDefaults fills in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = version.Name
	}
	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	if c.Output.Dir == "" {
		c.Output.Dir = defaultOutputDir
	}
	c.Output.Dir = config.ExpandHome(c.Output.Dir)
	if c.Output.MirrorEnabled() {
		c.Output.S3.ApplyDefaults()
	}

	c.Server.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.Models.ApplyDefaults()
	c.Media.ApplyDefaults()
	if c.Engine.MaxConcurrent == 0 {
		c.Engine.MaxConcurrent = c.Inference.MaxConcurrent
	}
	c.Engine.ApplyDefaults()
	c.Jobs.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	switch c.Transport {
	case TransportStdio:
		if c.Logging.Output == "stdout" {
			return fmt.Errorf("logging.output must be stderr with the stdio transport")
		}
	case TransportHTTP:
		if err := c.Server.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("transport must be %s or %s (got: %s)", TransportStdio, TransportHTTP, c.Transport)
	}
	if c.Inference.MaxConcurrent < 0 {
		return fmt.Errorf("inference.max_concurrent must not be negative")
	}
	if _, err := output.ParseFormats(c.Output.Formats); err != nil {
		return fmt.Errorf("output.formats: %w", err)
	}
	if c.Output.MirrorEnabled() {
		if err := c.Output.S3.Validate(); err != nil {
			return fmt.Errorf("output.%w", err)
		}
	}

	validators := []struct {
		name string
		fn   func() error
	}{
		{"models", c.Models.Validate},
		{"media", c.Media.Validate},
		{"engine", c.Engine.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}

// OutputFormats returns the configured default formats. Validate has
// already rejected unknown names.
func (c *Config) OutputFormats() []output.Format {
	formats, err := output.ParseFormats(c.Output.Formats)
	if err != nil {
		return output.AllFormats()
	}
	return formats
}

// DefaultTier returns the configured model tier.
func (c *Config) DefaultTier() model.Tier {
	tier, err := model.ParseTier(c.Models.DefaultTier)
	if err != nil {
		return model.TierBase
	}
	return tier
}
