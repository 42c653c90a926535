// Package handlers provides HTTP handlers for the presentation layer.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/services"
	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/templates"
	"github.com/gin-gonic/gin"
)

// AffordanceHandlers serves affordance decisions and flow routing
type AffordanceHandlers struct {
	affordanceService *services.AffordanceService
	routingService    *services.RoutingService
	renderer          *templates.AffordanceRenderer
	logger            *logging.ChanneledLogger
	perfTracker       *performance.Tracker
}

// NewAffordanceHandlers creates affordance handlers with injected services
func NewAffordanceHandlers(affordanceService *services.AffordanceService, routingService *services.RoutingService, renderer *templates.AffordanceRenderer, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AffordanceHandlers {
	return &AffordanceHandlers{
		affordanceService: affordanceService,
		routingService:    routingService,
		renderer:          renderer,
		logger:            logger,
		perfTracker:       perfTracker,
	}
}

// GetAffordance handles GET /api/v1/auth/affordance - returns the render
// instruction for the session, as JSON or as an HTML fragment.
func (h *AffordanceHandlers) GetAffordance(c *gin.Context) {
	sessionID, exists := middleware.GetSessionID(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_affordance_request", sessionID)
	defer marker.Complete()
	h.logger.Auth().Debug("Received affordance request", "method", c.Request.Method, "path", c.Request.URL.Path, "sessionId", logging.SanitizeSessionID(sessionID))

	instruction := h.affordanceService.Decide(sessionID)

	if wantsHTML(c) {
		fragment := h.renderer.Render(instruction)
		marker.SetSuccess(true)
		h.logger.Perf().Info("Performance for affordance request", "duration", time.Since(start), "sessionId", logging.SanitizeSessionID(sessionID), "format", "html", "success", true)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for affordance request", "duration", time.Since(start), "sessionId", logging.SanitizeSessionID(sessionID), "format", "json", "success", true)
	c.JSON(http.StatusOK, instruction)
}

// GetRoute handles GET /api/v1/auth/route - decides in-page versus redirect
// flow for a sign-in or sign-up action.
func (h *AffordanceHandlers) GetRoute(c *gin.Context) {
	sessionID, exists := middleware.GetSessionID(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_route_request", sessionID)
	defer marker.Complete()

	action := affordance.Action(c.Query("action"))
	if action != affordance.ActionSignIn && action != affordance.ActionSignUp {
		h.logger.Route().Warn("Route request with invalid action", "action", string(action), "sessionId", logging.SanitizeSessionID(sessionID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be signin or signup"})
		return
	}

	// The return destination defaults to the page the request came from.
	returnTo := c.Query("return")
	if returnTo == "" {
		returnTo = c.Request.Referer()
	}
	userAgent := c.GetHeader("User-Agent")

	decision := h.routingService.Route(sessionID, userAgent, action, returnTo)

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for route request", "duration", time.Since(start), "sessionId", logging.SanitizeSessionID(sessionID), "action", string(action), "success", true)
	c.JSON(http.StatusOK, decision)
}

// wantsHTML reports whether the client asked for an HTML fragment, either
// explicitly via ?format=html or through the Accept header.
func wantsHTML(c *gin.Context) bool {
	if c.Query("format") == "html" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
