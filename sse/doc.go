// Package sse implements Server-Sent Events framing and a hub of
// long-lived event streams keyed by client id.
//
// An HTTP session's standing GET stream registers with the Hub under the
// session id; pushes that have no request stream of their own go out on it.
// Request-scoped streams use Stream directly.
//
//	hub := sse.NewHub()
//	router.GET("/mcp", func(c *gin.Context) {
//		sse.Serve(hub, c.Writer, c.Request, sse.NewClient(id), 30*time.Second)
//	})
package sse
