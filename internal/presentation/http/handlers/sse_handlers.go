package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
	"github.com/gin-gonic/gin"
)

var activeSSEConnections int64

// SSEHandlers manages server-sent event streams for auth change pushes
type SSEHandlers struct {
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSSEHandlers creates SSE handlers with injected dependencies
func NewSSEHandlers(broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SSEHandlers {
	return &SSEHandlers{
		broadcaster: broadcaster,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ActiveConnections reports the current number of open SSE streams.
func (h *SSEHandlers) ActiveConnections() int64 {
	return atomic.LoadInt64(&activeSSEConnections)
}

// GetSSE handles GET /api/v1/auth/sse - establishes Server-Sent Events connection
func (h *SSEHandlers) GetSSE(c *gin.Context) {
	sessionID, exists := middleware.GetSessionID(c)
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID required for SSE connection"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_sse_request", sessionID)
	defer marker.Complete()
	h.logger.SSE().Debug("Received SSE connection request", "method", c.Request.Method, "path", c.Request.URL.Path, "sessionId", logging.SanitizeSessionID(sessionID))

	// Per-session connection cap
	if count := h.broadcaster.GetSessionConnectionCount(sessionID); count >= config.MaxSessionConnections {
		h.logger.SSE().Warn("SSE connection limit reached for session",
			"sessionId", logging.SanitizeSessionID(sessionID),
			"currentConnections", count,
			"maxConnections", config.MaxSessionConnections)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "SSE connection limit reached. Please try again later.",
		})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")

	ch := h.broadcaster.AddClient(sessionID)
	atomic.AddInt64(&activeSSEConnections, 1)
	defer func() {
		atomic.AddInt64(&activeSSEConnections, -1)
		h.broadcaster.RemoveClient(ch, sessionID)
	}()

	// Send initial connection confirmation
	if _, err := fmt.Fprintf(c.Writer, "data: {\"type\":\"connected\",\"sessionId\":\"%s\",\"timestamp\":\"%s\"}\n\n", sessionID, time.Now().Format(time.RFC3339)); err != nil {
		h.logger.SSE().Warn("SSE initial message failed", "sessionId", logging.SanitizeSessionID(sessionID), "error", err.Error())
		return
	}
	c.Writer.Flush()

	clientCtx := c.Request.Context()

	h.logger.SSE().Info("SSE connection established",
		"sessionId", logging.SanitizeSessionID(sessionID),
		"totalConnections", atomic.LoadInt64(&activeSSEConnections),
		"setupDuration", time.Since(start))

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for GetSSE request", "duration", marker.Duration, "sessionId", logging.SanitizeSessionID(sessionID), "success", true)

	heartbeat := time.NewTicker(time.Duration(config.SSEHeartbeatIntervalSeconds) * time.Second)
	defer heartbeat.Stop()

	maxLifetime := time.NewTimer(time.Duration(config.SSEConnectionTimeoutMinutes) * time.Minute)
	defer maxLifetime.Stop()

	connectionStart := time.Now()
	for {
		select {
		case <-clientCtx.Done():
			h.logger.SSE().Info("SSE client disconnected",
				"sessionId", logging.SanitizeSessionID(sessionID),
				"connectionDuration", time.Since(connectionStart))
			return

		case <-maxLifetime.C:
			h.logger.SSE().Info("SSE connection lifetime reached, closing",
				"sessionId", logging.SanitizeSessionID(sessionID),
				"connectionDuration", time.Since(connectionStart))
			return

		case message, ok := <-ch:
			if !ok {
				h.logger.SSE().Info("SSE connection channel closed",
					"sessionId", logging.SanitizeSessionID(sessionID),
					"connectionDuration", time.Since(connectionStart))
				return
			}

			if _, err := c.Writer.WriteString(message); err != nil {
				h.logger.SSE().Error("SSE write failed",
					"sessionId", logging.SanitizeSessionID(sessionID),
					"error", err.Error())
				return
			}
			c.Writer.Flush()

		case <-heartbeat.C:
			msg := fmt.Sprintf("data: {\"type\":\"heartbeat\",\"timestamp\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
			if _, err := c.Writer.WriteString(msg); err != nil {
				h.logger.SSE().Debug("SSE heartbeat write failed, closing connection",
					"sessionId", logging.SanitizeSessionID(sessionID))
				return
			}
			c.Writer.Flush()
		}
	}
}
