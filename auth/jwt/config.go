package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod is an HMAC signing algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures token verification.
type Config struct {
	// Secret is the shared HMAC key.
	Secret string `mapstructure:"jwt_secret"`

	// Method defaults to HS256.
	Method SigningMethod `mapstructure:"method"`

	// Issuer, when set, must match the "iss" claim.
	Issuer string `mapstructure:"issuer"`

	// Audience, when set, must appear in the "aud" claim.
	Audience string `mapstructure:"audience"`

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration `mapstructure:"leeway"`

	// TTL is the lifetime Sign gives tokens without an expiry (default: 1h).
	TTL time.Duration `mapstructure:"ttl"`

	// RequireScope gates tool calls and resource reads on the "scope" claim.
	RequireScope bool `mapstructure:"require_scope"`
}

// Enabled reports whether a secret is configured.
func (c *Config) Enabled() bool { return c.Secret != "" }

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL == 0 {
		c.TTL = time.Hour
	}
}

// Validate checks the signing method and secret.
func (c *Config) Validate() error {
	switch c.Method {
	case HS256, HS384, HS512:
	default:
		return errors.New("jwt: unsupported signing method: " + string(c.Method))
	}
	if c.Secret == "" {
		return errors.New("jwt: secret is required")
	}
	if c.Leeway < 0 {
		return errors.New("jwt: leeway must be non-negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}
