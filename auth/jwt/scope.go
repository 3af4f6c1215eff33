package jwt

import (
	"context"

	"github.com/kbukum/video-transcriber-mcp/auth"
	"github.com/kbukum/video-transcriber-mcp/authz"
	"github.com/kbukum/video-transcriber-mcp/errors"
)

// ScopeAuthorizer checks permissions against the scope claim of the token
// the auth middleware stored on ctx.
func ScopeAuthorizer(checker authz.Checker) func(ctx context.Context, permission string) error {
	return func(ctx context.Context, permission string) error {
		claims, ok := auth.ClaimsFrom[*Claims](ctx)
		if !ok || claims == nil {
			return errors.Unauthorized("")
		}
		if !checker.HasPermission(claims.Scope, permission) {
			return errors.Forbidden(permission)
		}
		return nil
	}
}
