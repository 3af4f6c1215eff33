package bootstrap

import (
	"github.com/kbukum/video-transcriber-mcp/config"
)

// Config is satisfied by any struct embedding config.ServiceConfig by
// value, through promoted methods.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Session session.Config `yaml:"session" mapstructure:"session"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
