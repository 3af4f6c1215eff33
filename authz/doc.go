// Package authz decides whether a bearer token's scope grants an MCP
// permission.
//
// Permissions are "resource:action" strings. A tool call needs
// "tools:<tool name>"; reading or listing transcripts needs
// "resources:read" or "resources:list". Scope entries may use "*" for
// either half:
//
//	scope: "tools:transcribe_video resources:*"
//
//	authz.Scope.HasPermission(scope, "tools:transcribe_video") // true
//	authz.Scope.HasPermission(scope, "tools:list_transcripts") // false
package authz
