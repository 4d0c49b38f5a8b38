package middleware

import (
	"context"

	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling labels each request's CPU and allocation samples with its route
// pattern and method. Unmatched routes and skipPaths are left unlabelled.
func Profiling(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if _, skipped := skip[c.Request.URL.Path]; skipped || route == "" {
			c.Next()
			return
		}
		telemetry.WithRouteLabels(c.Request.Context(), route, c.Request.Method, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
