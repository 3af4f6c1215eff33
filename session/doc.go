// Package session tracks HTTP clients of the MCP endpoint.
//
// A session is opened by initialize and identified by the Mcp-Session-Id
// header afterwards. Events produced while serving a request go to that
// request's subscriber when it has one (a POST answered as an event
// stream), otherwise to the session's standing GET stream, otherwise
// nowhere. Closing a session never stops work it started.
package session
