package engine

import (
	"fmt"
	"time"
)

const (
	defaultProvider   = "whisper-cpp"
	defaultBinary     = "whisper-cli"
	defaultThreads    = 4
	defaultSidecarURL = "http://localhost:8387"
	defaultTimeout    = 2 * time.Hour
)

// Config selects and configures the speech-to-text engine.
type Config struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"`
	Binary     string        `yaml:"binary" mapstructure:"binary"`
	Threads    int           `yaml:"threads" mapstructure:"threads"`
	SidecarURL string        `yaml:"sidecar_url" mapstructure:"sidecar_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxConcurrent bounds simultaneous inference runs; zero means NumCPU.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = defaultProvider
	}
	if c.Binary == "" {
		c.Binary = defaultBinary
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
	if c.SidecarURL == "" {
		c.SidecarURL = defaultSidecarURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case "whisper-cpp", "whisper":
	default:
		return fmt.Errorf("engine.provider must be whisper-cpp or whisper, got %q", c.Provider)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("inference.max_concurrent must not be negative")
	}
	return nil
}
