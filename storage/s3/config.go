package s3

import (
	"errors"
	"strings"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config selects a bucket on AWS S3 or an S3-compatible service such as
// MinIO. Empty credentials fall back to the SDK's default chain.
type Config struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	// PathStyle addresses objects as endpoint/bucket/key. Always on with a
	// custom endpoint.
	PathStyle bool `yaml:"path_style" mapstructure:"path_style"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3: bucket is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("s3: access_key and secret_key must be set together")
	}
	return nil
}
