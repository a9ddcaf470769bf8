package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmabill/backend/internal/infrastructure/logger"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// DependencyCheck checks one backing service for the health endpoint
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    []DependencyCheck
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, checks ...DependencyCheck) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    checks,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"pharmabill"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// HealthResponse reports the state of every dependency
type HealthResponse struct {
	Status       string            `json:"status" example:"healthy"`
	Time         string            `json:"time" example:"2026-01-23T12:00:00Z"`
	Dependencies map[string]string `json:"dependencies"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// Health godoc
// @ID           health
// @Summary      Check service health
// @Description  Pings the database and the other configured backends
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:       "healthy",
		Time:         time.Now().UTC().Format(time.RFC3339),
		Dependencies: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed",
				zap.String("dependency", check.Name),
				zap.Error(err))
			resp.Dependencies[check.Name] = "error"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[check.Name] = "ok"
	}

	c.JSON(status, resp)
}
