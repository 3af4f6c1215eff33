package media

import (
	"fmt"
	"time"
)

// Config configures the downloader and codec collaborators.
type Config struct {
	YtDlpPath      string        `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
	FFmpegPath     string        `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" mapstructure:"acquire_timeout"`
	ExtractTimeout time.Duration `yaml:"extract_timeout" mapstructure:"extract_timeout"`
	GracePeriod    time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.YtDlpPath == "" {
		c.YtDlpPath = "yt-dlp"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 30 * time.Minute
	}
	if c.ExtractTimeout == 0 {
		c.ExtractTimeout = 10 * time.Minute
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 5 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.AcquireTimeout < 0 || c.ExtractTimeout < 0 {
		return fmt.Errorf("media: timeouts must not be negative")
	}
	return nil
}
