package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/services"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// ReconcileHandlers accepts authoritative identity pushes from the provider
type ReconcileHandlers struct {
	reconcileService *services.ReconcileService
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewReconcileHandlers creates reconcile handlers with injected services
func NewReconcileHandlers(reconcileService *services.ReconcileService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ReconcileHandlers {
	return &ReconcileHandlers{
		reconcileService: reconcileService,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// PostReconcile handles POST /api/v1/auth/reconcile - applies the provider's
// resolved identity to the session's cache. The bearer token is the sole
// authority; a token without an identity claim means signed out.
func (h *ReconcileHandlers) PostReconcile(c *gin.Context) {
	if config.ReconcileJWTSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reconcile endpoint not configured"})
		return
	}

	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
		return
	}

	start := time.Now()
	claims, err := security.ValidateJWT(authHeader[7:], config.ReconcileJWTSecret)
	if err != nil {
		h.logger.Auth().Warn("Reconcile request with invalid token", "error", err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// The token may pin the session; otherwise the request's own session
	// context applies.
	sessionID, _ := claims["sessionId"].(string)
	if sessionID == "" {
		contextSession, exists := middleware.GetSessionID(c)
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no session to reconcile"})
			return
		}
		sessionID = contextSession
	}

	marker := h.perfTracker.StartOperationWithContext(c.Request.Context(), "post_reconcile_request", sessionID)
	defer marker.Complete()

	ident := security.GetIdentityFromClaims(claims)

	result, err := h.reconcileService.Reconcile(sessionID, ident)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for reconcile request", "duration", time.Since(start), "sessionId", logging.SanitizeSessionID(sessionID), "identityPresent", ident != nil, "success", true)
	c.JSON(http.StatusOK, result)
}
