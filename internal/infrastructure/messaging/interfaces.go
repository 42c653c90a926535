// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"

// Broadcaster defines the interface for managing SSE client connections and
// pushing affordance updates to visitor sessions.
type Broadcaster interface {
	AddClient(sessionID string) chan string
	RemoveClient(ch chan string, sessionID string)
	GetSessionConnectionCount(sessionID string) int
	TotalConnectionCount() int
	BroadcastAuthChanged(sessionID string, instruction *affordance.RenderInstruction)
}
