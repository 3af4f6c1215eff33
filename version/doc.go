// Package version reports the server's build identity. Values are set at
// link time:
//
//	go build -ldflags "-X github.com/kbukum/video-transcriber-mcp/version.Version=1.2.0" ./cmd/video-transcriber-mcp
//
// Without ldflags the VCS stamp from the Go toolchain fills in the commit
// and build time.
package version
