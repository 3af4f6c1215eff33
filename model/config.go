package model

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kbukum/video-transcriber-mcp/config"
)

const (
	defaultDir             = "~/.cache/video-transcriber-mcp/models"
	defaultBaseURL         = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
	defaultDownloadTimeout = 30 * time.Minute
)

// Config configures the model registry.
type Config struct {
	Dir             string        `yaml:"dir" mapstructure:"dir"`
	DefaultTier     string        `yaml:"default_tier" mapstructure:"default_tier"`
	AutoDownload    bool          `yaml:"auto_download" mapstructure:"auto_download"`
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
}

// ApplyDefaults fills in zero values and expands ~ in Dir.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = defaultDir
	}
	c.Dir = config.ExpandHome(c.Dir)
	if c.DefaultTier == "" {
		c.DefaultTier = string(TierBase)
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = defaultDownloadTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := ParseTier(c.DefaultTier); err != nil {
		return fmt.Errorf("models.default_tier: %w", err)
	}
	if !filepath.IsAbs(c.Dir) {
		abs, err := filepath.Abs(c.Dir)
		if err != nil {
			return fmt.Errorf("models.dir: %w", err)
		}
		c.Dir = abs
	}
	return nil
}
