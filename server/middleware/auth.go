package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/video-transcriber-mcp/auth"
	"github.com/kbukum/video-transcriber-mcp/errors"
)

// ContextKeyClaims is the Gin context key holding verified claims.
const ContextKeyClaims = "auth_claims"

// AuthConfig configures bearer authentication.
type AuthConfig struct {
	Validator auth.TokenValidator
	// SkipPaths are path prefixes that bypass authentication.
	SkipPaths []string
	// OnError writes the rejection. The default answers with the error's
	// HTTP status and JSON body.
	OnError func(c *gin.Context, err *errors.AppError)
}

// Auth requires a valid "Authorization: Bearer <token>" header. Verified
// claims are stored in the Gin context and the request context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	onError := cfg.OnError
	if onError == nil {
		onError = func(c *gin.Context, err *errors.AppError) {
			status := err.HTTPStatus
			if status == 0 {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, err.ToResponse())
		}
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			onError(c, errors.Unauthorized("Authorization header required"))
			c.Abort()
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			onError(c, errors.Unauthorized("Invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := cfg.Validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.InvalidToken().WithCause(err)
			}
			onError(c, appErr)
			c.Abort()
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}
