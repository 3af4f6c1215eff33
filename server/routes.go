package server

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/video-transcriber-mcp/component"
)

var systemPaths = map[string]bool{
	"/health": true,
	"/info":   true,
}

// summaryRoutes lists the engine's routes for the startup summary: the
// MCP endpoint first, then system routes, GET before POST before DELETE.
func summaryRoutes(routes gin.RoutesInfo) []component.Route {
	sort.SliceStable(routes, func(i, j int) bool {
		iSys, jSys := systemPaths[routes[i].Path], systemPaths[routes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return methodOrder(routes[i].Method) < methodOrder(routes[j].Method)
	})

	out := make([]component.Route, 0, len(routes))
	for _, r := range routes {
		handler := formatHandlerName(r.Handler)
		if systemPaths[r.Path] {
			handler += " ⚙️"
		}
		out = append(out, component.Route{Method: r.Method, Path: r.Path, Handler: handler})
	}
	return out
}

// formatHandlerName shortens Gin's handler names:
// "github.com/x/y/transport.(*HTTPHandler).post-fm" becomes "HTTPHandler.post".
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	// Closures: "endpoint.Health.func1" becomes "health".
	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	if pkg, rest, ok := strings.Cut(name, "."); ok && rest != "" && strings.ToLower(pkg) == pkg {
		name = rest
	}
	return name
}

func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
