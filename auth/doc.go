// Package auth holds the bearer-token contract guarding the HTTP channel.
//
// The top-level package defines TokenValidator and carries verified claims
// through the request context. auth/jwt implements the validator for
// HMAC-signed JWTs:
//
//	server:
//	  auth:
//	    jwt_secret: "change-me"
//
// An empty secret leaves /mcp unauthenticated.
package auth
