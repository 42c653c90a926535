package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/container"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// HealthHandlers exposes liveness and readiness information
type HealthHandlers struct {
	container *container.Container
	startedAt time.Time
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers(container *container.Container) *HealthHandlers {
	return &HealthHandlers{
		container: container,
		startedAt: time.Now(),
	}
}

// GetHealth handles GET /api/v1/health
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(h.startedAt).String(),
		"storageDriver":  config.StorageDriver,
		"sseConnections": h.container.Broadcaster.TotalConnectionCount(),
	})
}
