package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/video-transcriber-mcp/resilience"
	"github.com/kbukum/video-transcriber-mcp/version"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client. Model downloads leave BaseURL empty and pass
// absolute URLs; the sidecar engine sets it to the sidecar address.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// UserAgent defaults to version.UserAgent().
	UserAgent string            `yaml:"user_agent" mapstructure:"user_agent"`
	Headers   map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry applies to Do only. Nil sends once.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.Retry != nil && c.Retry.RetryIf == nil {
		return fmt.Errorf("httpclient: retry needs a RetryIf, use IsRetryable")
	}
	return nil
}
