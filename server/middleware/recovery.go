package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/video-transcriber-mcp/errors"
	"github.com/kbukum/video-transcriber-mcp/logger"
)

// Recovery recovers from panics in HTTP handlers, logs the stack and
// answers 500 unless a response is already under way.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprint(p),
					"stack", string(debug.Stack()),
					logger.FieldPath, c.Request.URL.Path,
					"method", c.Request.Method,
					"client_ip", c.ClientIP(),
				))
				if c.Writer.Written() {
					c.Abort()
					return
				}
				appErr := errors.Internal(fmt.Errorf("panic: %v", p))
				c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.ToResponse())
			}
		}()
		c.Next()
	}
}
