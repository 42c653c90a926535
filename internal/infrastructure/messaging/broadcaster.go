// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages session-specific SSE connections. After a reconcile
// the session's open streams receive an auth_changed event carrying the fresh
// render instruction.
type SSEBroadcaster struct {
	sessions map[string][]chan string // sessionId -> []channels
	mu       sync.Mutex
	logger   *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			sessions: make(map[string][]chan string),
			logger:   logger,
		}
	})
	return globalBroadcaster
}

// AddClient registers a new SSE client for a session.
func (b *SSEBroadcaster) AddClient(sessionID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions[sessionID] = append(b.sessions[sessionID], ch)

	b.logger.SSE().Debug("SSE client registered", "sessionId", logging.SanitizeSessionID(sessionID))
	return ch
}

// RemoveClient removes an SSE client from a session.
func (b *SSEBroadcaster) RemoveClient(ch chan string, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, exists := b.sessions[sessionID]; exists {
		newClients := make([]chan string, 0, len(clients)-1)
		for _, client := range clients {
			if client != ch {
				newClients = append(newClients, client)
			}
		}
		b.sessions[sessionID] = newClients

		if len(b.sessions[sessionID]) == 0 {
			delete(b.sessions, sessionID)
		}
	}
	b.logger.SSE().Debug("SSE client unregistered", "sessionId", logging.SanitizeSessionID(sessionID))
}

// GetSessionConnectionCount returns the connection count for a session.
func (b *SSEBroadcaster) GetSessionConnectionCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[sessionID])
}

// TotalConnectionCount returns the connection count across all sessions.
func (b *SSEBroadcaster) TotalConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, clients := range b.sessions {
		total += len(clients)
	}
	return total
}

// BroadcastAuthChanged pushes the fresh render instruction to every open
// stream of the session so the page can replace its optimistic control.
func (b *SSEBroadcaster) BroadcastAuthChanged(sessionID string, instruction *affordance.RenderInstruction) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in BroadcastAuthChanged", "error", r, "sessionId", logging.SanitizeSessionID(sessionID))
		}
	}()

	data, err := json.Marshal(instruction)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal render instruction", "error", err.Error(), "sessionId", logging.SanitizeSessionID(sessionID))
		return
	}
	message := fmt.Sprintf("event: auth_changed\ndata: %s\n\n", data)

	b.logger.SSE().Debug("Broadcasting to session", "message", strings.ReplaceAll(message, "\n", "\\n"), "sessionId", logging.SanitizeSessionID(sessionID))

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.sessions[sessionID] {
		select {
		case ch <- message:
		default:
			b.logger.SSE().Warn("SSE channel full, message dropped", "sessionId", logging.SanitizeSessionID(sessionID))
		}
	}
}
