package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/video-transcriber-mcp/version"
)

var startTime = time.Now()

// InfoProvider adds service-specific fields to /info.
type InfoProvider func() map[string]any

// Info reports build information, uptime and whatever extra provides.
func Info(serviceName string, extra InfoProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.GetVersionInfo()
		body := gin.H{
			"service":    serviceName,
			"version":    version.GetShortVersion(),
			"git_commit": v.GitCommit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"uptime":     time.Since(startTime).Round(time.Second).String(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		}
		if extra != nil {
			for k, val := range extra() {
				body[k] = val
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
