// Package jwt verifies HMAC-signed bearer tokens for the HTTP channel.
//
//	v, err := jwt.NewVerifier(&jwt.Config{Secret: secret})
//	claims, err := v.Parse(token)
package jwt

import (
	stderrors "errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/video-transcriber-mcp/auth"
	"github.com/kbukum/video-transcriber-mcp/errors"
)

// Claims are the claims accepted on /mcp.
type Claims struct {
	gojwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Verifier parses and verifies tokens signed with the configured secret.
type Verifier struct {
	cfg Config
}

// NewVerifier validates cfg and returns a Verifier.
func NewVerifier(cfg *Config) (*Verifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Verifier{cfg: *cfg}, nil
}

// Parse verifies the signature and time claims of token and returns its
// claims. Expired tokens yield errors.TokenExpired, anything else
// unverifiable yields errors.InvalidToken.
func (v *Verifier) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, v.keyFunc, v.parserOptions()...)
	if err != nil {
		if stderrors.Is(err, gojwt.ErrTokenExpired) {
			return nil, errors.TokenExpired().WithCause(err)
		}
		return nil, errors.InvalidToken().WithCause(err)
	}
	if !parsed.Valid {
		return nil, errors.InvalidToken()
	}
	return claims, nil
}

// Sign issues a token for claims, setting iat and exp when absent. The
// server never issues tokens itself; operators and tests use this to mint
// them with the shared secret.
func (v *Verifier) Sign(claims *Claims) (string, error) {
	now := time.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = gojwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(v.cfg.TTL))
	}
	if claims.Issuer == "" && v.cfg.Issuer != "" {
		claims.Issuer = v.cfg.Issuer
	}
	if len(claims.Audience) == 0 && v.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{v.cfg.Audience}
	}
	signed, err := gojwt.NewWithClaims(v.cfg.signingMethod(), claims).SignedString([]byte(v.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Validator adapts the verifier to auth.TokenValidator.
func (v *Verifier) Validator() auth.TokenValidator {
	return auth.TokenValidatorFunc(func(token string) (any, error) {
		return v.Parse(token)
	})
}

func (v *Verifier) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != v.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(v.cfg.Secret), nil
}

func (v *Verifier) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{v.cfg.signingMethod().Alg()}),
		gojwt.WithIssuedAt(),
	}
	if v.cfg.Leeway > 0 {
		opts = append(opts, gojwt.WithLeeway(v.cfg.Leeway))
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(v.cfg.Audience))
	}
	return opts
}
