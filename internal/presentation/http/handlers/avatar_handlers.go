package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/services"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// AvatarHandlers serves proxied, normalized avatar images
type AvatarHandlers struct {
	avatarService *services.AvatarService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewAvatarHandlers creates avatar handlers with injected services
func NewAvatarHandlers(avatarService *services.AvatarService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AvatarHandlers {
	return &AvatarHandlers{
		avatarService: avatarService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// GetAvatar handles GET /api/v1/avatar/:token - resolves an encrypted avatar
// token to a normalized webp image. Every failure is a 404; the token never
// leaks why it was rejected.
func (h *AvatarHandlers) GetAvatar(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("get_avatar_request", "system")
	defer marker.Complete()

	token := c.Param("token")
	if token == "" {
		c.Status(http.StatusNotFound)
		return
	}

	data, err := h.avatarService.Resolve(token)
	if err != nil {
		h.logger.Avatar().Debug("Avatar token resolution failed", "error", err.Error(), "duration", time.Since(start))
		marker.SetError(err)
		c.Status(http.StatusNotFound)
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for avatar request", "duration", time.Since(start), "bytes", len(data), "success", true)

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/webp", data)
}
