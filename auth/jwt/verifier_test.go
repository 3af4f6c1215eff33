package jwt_test

import (
	"context"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/video-transcriber-mcp/auth"
	"github.com/kbukum/video-transcriber-mcp/auth/jwt"
	"github.com/kbukum/video-transcriber-mcp/authz"
	"github.com/kbukum/video-transcriber-mcp/errors"
)

func newVerifier(t *testing.T, cfg jwt.Config) *jwt.Verifier {
	t.Helper()
	v, err := jwt.NewVerifier(&cfg)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     jwt.Config
		wantErr bool
	}{
		{"valid", jwt.Config{Secret: "s"}, false},
		{"missing secret", jwt.Config{}, true},
		{"rsa not supported", jwt.Config{Secret: "s", Method: "RS256"}, true},
		{"negative leeway", jwt.Config{Secret: "s", Leeway: -time.Second}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSignAndParse(t *testing.T) {
	v := newVerifier(t, jwt.Config{Secret: "secret", Issuer: "ops"})

	token, err := v.Sign(&jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "client-1"},
		Scope:            "transcribe",
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := v.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "client-1" {
		t.Errorf("expected subject 'client-1', got %q", claims.Subject)
	}
	if claims.Scope != "transcribe" {
		t.Errorf("expected scope 'transcribe', got %q", claims.Scope)
	}
	if claims.Issuer != "ops" {
		t.Errorf("expected issuer 'ops', got %q", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signer := newVerifier(t, jwt.Config{Secret: "one"})
	verifier := newVerifier(t, jwt.Config{Secret: "two"})

	token, err := signer.Sign(&jwt.Claims{})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, err = verifier.Parse(token)
	if !errors.Is(err, errors.ErrCodeInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	v := newVerifier(t, jwt.Config{Secret: "secret"})
	past := time.Now().Add(-time.Hour)
	token, err := v.Sign(&jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{
		IssuedAt:  gojwt.NewNumericDate(past.Add(-time.Minute)),
		ExpiresAt: gojwt.NewNumericDate(past),
	}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	_, err = v.Parse(token)
	if !errors.Is(err, errors.ErrCodeTokenExpired) {
		t.Fatalf("expected TOKEN_EXPIRED, got %v", err)
	}
}

func TestParseWrongAudience(t *testing.T) {
	signer := newVerifier(t, jwt.Config{Secret: "secret", Audience: "other"})
	verifier := newVerifier(t, jwt.Config{Secret: "secret", Audience: "mcp"})

	token, err := signer.Sign(&jwt.Claims{})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("expected audience mismatch to fail")
	}
}

func TestValidatorAndContext(t *testing.T) {
	v := newVerifier(t, jwt.Config{Secret: "secret"})
	token, err := v.Sign(&jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{Subject: "c"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := v.Validator().ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	ctx := auth.WithClaims(context.Background(), got)
	claims, ok := auth.ClaimsFrom[*jwt.Claims](ctx)
	if !ok {
		t.Fatal("expected claims in context")
	}
	if claims.Subject != "c" {
		t.Errorf("expected subject 'c', got %q", claims.Subject)
	}
	if _, ok := auth.ClaimsFrom[string](ctx); ok {
		t.Error("expected wrong type lookup to fail")
	}
}

func TestScopeAuthorizer(t *testing.T) {
	check := jwt.ScopeAuthorizer(authz.Scope)
	withScope := func(scope string) context.Context {
		return auth.WithClaims(context.Background(), &jwt.Claims{Scope: scope})
	}

	tests := []struct {
		name       string
		ctx        context.Context
		permission string
		code       errors.ErrorCode
	}{
		{"granted tool", withScope("tools:transcribe_video resources:read"), "tools:transcribe_video", ""},
		{"wildcard", withScope("tools:*"), "tools:check_dependencies", ""},
		{"missing grant", withScope("tools:list_transcripts"), "tools:transcribe_video", errors.ErrCodeForbidden},
		{"empty scope", withScope(""), "resources:read", errors.ErrCodeForbidden},
		{"no claims", context.Background(), "resources:list", errors.ErrCodeUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := check(tc.ctx, tc.permission)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				return
			}
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, appErr.Code)
			}
		})
	}
}
