package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodySize bounds a single JSON-RPC envelope.
const DefaultMaxBodySize = 1 << 20

// ParseSize parses sizes like "512KB", "1MB" or "2GB" into bytes. A bare
// number is bytes.
func ParseSize(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, fmt.Errorf("empty size")
	}
	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(v, "GB"):
		multiplier, v = 1<<30, v[:len(v)-2]
	case strings.HasSuffix(v, "MB"):
		multiplier, v = 1<<20, v[:len(v)-2]
	case strings.HasSuffix(v, "KB"):
		multiplier, v = 1<<10, v[:len(v)-2]
	case strings.HasSuffix(v, "B"):
		v = v[:len(v)-1]
	}
	var n int64
	if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}

// BodySizeLimit caps request bodies at maxSize. An unparsable size falls
// back to DefaultMaxBodySize.
func BodySizeLimit(maxSize string) Middleware {
	size, err := ParseSize(maxSize)
	if err != nil {
		size = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GinBodySizeLimit is BodySizeLimit for the Gin chain.
func GinBodySizeLimit(maxSize string) gin.HandlerFunc {
	return GinWrap(BodySizeLimit(maxSize))
}
