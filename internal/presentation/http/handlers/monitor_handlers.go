package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/container"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

const (
	monitorWriteWait  = 10 * time.Second
	monitorPongWait   = 60 * time.Second
	monitorPingPeriod = 54 * time.Second
)

var monitorUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MonitorHandlers handles monitor dashboard authentication and data streaming
type MonitorHandlers struct {
	container *container.Container
}

// NewMonitorHandlers creates new monitor handlers
func NewMonitorHandlers(container *container.Container) *MonitorHandlers {
	return &MonitorHandlers{
		container: container,
	}
}

// AuthCheck checks if MonitorPassword is set and validates the bearer token
func (h *MonitorHandlers) AuthCheck(c *gin.Context) {
	monitorPassword := config.MonitorPassword
	response := map[string]any{
		"passwordRequired": monitorPassword != "",
		"authenticated":    false,
	}

	if monitorPassword == "" {
		response["message"] = "Set MONITOR_PASSWORD to protect the monitor dashboard"
	}

	auth := c.GetHeader("Authorization")
	if monitorPassword != "" && strings.HasPrefix(auth, "Bearer ") && h.tokenValid(auth[7:]) {
		response["authenticated"] = true
	}

	c.JSON(http.StatusOK, response)
}

// Login handles monitor dashboard authentication
func (h *MonitorHandlers) Login(c *gin.Context) {
	var request struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	monitorPassword := config.MonitorPassword
	if monitorPassword == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "token": "no-auth-required"})
		return
	}
	if !passwordMatches(request.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	// Prefer a short-lived JWT when a signing secret is configured; the raw
	// password doubles as the token otherwise.
	token := request.Password
	if config.MonitorJWTSecret != "" {
		signed, err := security.GenerateMonitorToken(config.MonitorJWTSecret)
		if err != nil {
			h.container.Logger.System().Error("Failed to generate monitor token", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		token = signed
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// passwordMatches checks a candidate against MONITOR_PASSWORD, which may be
// either a plaintext value or a bcrypt hash.
func passwordMatches(candidate string) bool {
	stored := config.MonitorPassword
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return candidate == stored
}

// tokenValid accepts either the configured password or a valid monitor JWT.
func (h *MonitorHandlers) tokenValid(token string) bool {
	if passwordMatches(token) {
		return true
	}
	if config.MonitorJWTSecret == "" {
		return false
	}
	claims, err := security.ValidateJWT(token, config.MonitorJWTSecret)
	if err != nil {
		return false
	}
	role, _ := claims["role"].(string)
	return role == "monitor"
}

// MonitorAuthMiddleware protects monitor-specific endpoints.
func (h *MonitorHandlers) MonitorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.MonitorPassword == "" {
			c.Next() // No password set, allow access
			return
		}

		authHeader := c.GetHeader("Authorization")
		token := ""
		if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
			token = authHeader[7:]
		}
		// Browser WebSocket and EventSource clients cannot set headers.
		if token == "" {
			token = c.Query("token")
		}

		if !h.tokenValid(token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetStats returns a point-in-time aggregate of system activity.
func (h *MonitorHandlers) GetStats(c *gin.Context) {
	perfTracker := h.container.PerfTracker
	if perfTracker == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Performance tracker not available"})
		return
	}

	stats := perfTracker.GetOverallStats()
	stats["sseConnections"] = h.container.Broadcaster.TotalConnectionCount()
	c.JSON(http.StatusOK, stats)
}

// GetAlerts returns the retained performance alerts.
func (h *MonitorHandlers) GetAlerts(c *gin.Context) {
	perfTracker := h.container.PerfTracker
	if perfTracker == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Performance tracker not available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": perfTracker.GetAlerts()})
}

// GetSnapshot returns the full performance snapshot with health status.
func (h *MonitorHandlers) GetSnapshot(c *gin.Context) {
	perfTracker := h.container.PerfTracker
	if perfTracker == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Performance tracker not available"})
		return
	}
	c.JSON(http.StatusOK, perfTracker.TakeSnapshot())
}

// HandleMonitorSocket upgrades GET /ws/monitor to a WebSocket that streams
// decision, detect, reconcile and stats events.
func (h *MonitorHandlers) HandleMonitorSocket(c *gin.Context) {
	monitor := h.container.Monitor
	if monitor == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Monitor broadcaster not available"})
		return
	}

	conn, err := monitorUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.container.Logger.System().Error("Monitor WebSocket upgrade failed", "error", err.Error())
		return
	}

	client := &messaging.MonitorClient{
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	monitor.Register(client)

	go h.monitorWritePump(client)
	go h.monitorReadPump(client, monitor)
}

// monitorWritePump drains the client's send channel onto the socket.
func (h *MonitorHandlers) monitorWritePump(client *messaging.MonitorClient) {
	ticker := time.NewTicker(monitorPingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(monitorWriteWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// monitorReadPump discards inbound frames and detects disconnects.
func (h *MonitorHandlers) monitorReadPump(client *messaging.MonitorClient, monitor *messaging.MonitorBroadcaster) {
	defer func() {
		monitor.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(monitorPongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(monitorPongWait))
		return nil
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// StreamLogs handles the SSE connection for live log streaming.
func (h *MonitorHandlers) StreamLogs(c *gin.Context) {
	broadcaster := h.container.LogBroadcaster
	if broadcaster == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Log broadcaster not available"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	channelFilter := c.DefaultQuery("channel", "all")
	levelFilter := c.DefaultQuery("level", "INFO")
	var logLevel slog.Level
	switch levelFilter {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "INFO":
		logLevel = slog.LevelInfo
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	filters := logging.AppliedFilters{
		Channel: logging.Channel(channelFilter),
		Level:   logLevel,
	}

	client := broadcaster.NewClient(filters)
	broadcaster.RegisterClient(client)
	defer broadcaster.UnregisterClient(client)

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client.Channel:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetLogLevels handles GET /api/monitor/logs/levels - returns current log levels for all channels.
func (h *MonitorHandlers) GetLogLevels(c *gin.Context) {
	logger := h.container.Logger
	if logger == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logger not available"})
		return
	}
	levels := logger.GetChannelLevels()
	c.JSON(http.StatusOK, levels)
}

// SetLogLevel handles POST /api/monitor/logs/levels - sets the log level for a specific channel.
func (h *MonitorHandlers) SetLogLevel(c *gin.Context) {
	logger := h.container.Logger
	if logger == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logger not available"})
		return
	}

	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var level slog.Level
	switch req.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log level specified"})
		return
	}

	if err := logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, req.Level)})
}
