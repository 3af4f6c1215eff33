// Package mcp routes Model Context Protocol requests to their handlers.
//
// A Router owns the method registry (initialize, ping, tools/*,
// resources/*, notifications/*) and the tool registry. Every request runs
// on its own goroutine, can be cancelled with notifications/cancelled
// from the same channel scope, and has panics turned into -32603.
//
// Channels abstract the transport: the stdio transport feeds a long-lived
// Channel to Serve, the HTTP transport dispatches one request at a time
// with a per-request Channel whose Send goes through the session manager.
//
// Service binds the transcription tools and transcript resources to a
// Router.
package mcp
