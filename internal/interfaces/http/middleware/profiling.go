package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pharmabill/backend/internal/infrastructure/telemetry"
)

// Profiling tags the request goroutine with Pyroscope labels: method, route,
// resource (e.g. "clients") and pharmacy. Place it after PharmacyScope.
func Profiling(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(skipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		route := c.FullPath()
		labels := map[string]string{
			telemetry.ProfilingLabelMethod:   c.Request.Method,
			telemetry.ProfilingLabelRoute:    route,
			telemetry.ProfilingLabelResource: resourceFromRoute(route),
		}
		if pharmacyID, ok := GetPharmacyID(c); ok {
			labels[telemetry.ProfilingLabelPharmacyID] = pharmacyID.String()
		}

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute returns the first static segment after the API prefix:
// "/api/v1/clients/:id/balance" -> "clients"
func resourceFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

// isVersionSegment reports whether segment looks like v1, v2, ...
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
