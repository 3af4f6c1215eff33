// Package transport carries JSON-RPC frames between MCP clients and the
// mcp.Router.
//
// Stdio reads one envelope per line from stdin and writes responses and
// notifications one per line to stdout. HTTPHandler serves /mcp: POST for
// requests (JSON or event-stream replies), GET for a session's standing
// event stream, DELETE to end a session.
package transport
