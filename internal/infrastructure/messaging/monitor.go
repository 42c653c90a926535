package messaging

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MonitorClient represents a single connected operations dashboard client.
type MonitorClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// MonitorEvent is a single diagnostic event streamed to the dashboard:
// affordance decisions, detector verdicts, reconcile outcomes. Diagnostics
// only; nothing downstream depends on it.
type MonitorEvent struct {
	Type      string         `json:"type"` // "decision", "detect", "reconcile", "stats"
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"sessionId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// StatsSource supplies the periodic aggregate payload for the stats tick.
type StatsSource func() map[string]any

// MonitorBroadcaster manages all connected monitor clients and fans out
// diagnostic events and periodic stats.
type MonitorBroadcaster struct {
	clients      map[*MonitorClient]bool
	register     chan *MonitorClient
	unregister   chan *MonitorClient
	events       chan MonitorEvent
	statsSource  StatsSource
	tickInterval time.Duration
	mu           sync.RWMutex
}

// NewMonitorBroadcaster creates a new broadcaster instance.
func NewMonitorBroadcaster(statsSource StatsSource, tickInterval time.Duration) *MonitorBroadcaster {
	return &MonitorBroadcaster{
		clients:      make(map[*MonitorClient]bool),
		register:     make(chan *MonitorClient),
		unregister:   make(chan *MonitorClient),
		events:       make(chan MonitorEvent, 256),
		statsSource:  statsSource,
		tickInterval: tickInterval,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *MonitorBroadcaster) Run() {
	ticker := time.NewTicker(b.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			log.Printf("Monitor client registered (%d connected)", len(b.clients))
			b.mu.Unlock()

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Send)
			}
			log.Printf("Monitor client unregistered (%d connected)", len(b.clients))
			b.mu.Unlock()

		case event := <-b.events:
			b.fanOut(event)

		case <-ticker.C:
			b.broadcastStats()
		}
	}
}

// Register queues a client for registration.
func (b *MonitorBroadcaster) Register(client *MonitorClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *MonitorBroadcaster) Unregister(client *MonitorClient) {
	b.unregister <- client
}

// Publish submits a diagnostic event without blocking the caller.
func (b *MonitorBroadcaster) Publish(event MonitorEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case b.events <- event:
	default:
		// Monitor stream is best effort; drop when saturated.
	}
}

// fanOut sends an event to all connected clients.
func (b *MonitorBroadcaster) fanOut(event MonitorEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling monitor event: %v", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// broadcastStats gathers and sends the periodic aggregate payload.
func (b *MonitorBroadcaster) broadcastStats() {
	b.mu.RLock()
	hasClients := len(b.clients) > 0
	b.mu.RUnlock()

	if !hasClients || b.statsSource == nil {
		return
	}

	b.fanOut(MonitorEvent{
		Type:      "stats",
		Timestamp: time.Now().UTC(),
		Data:      b.statsSource(),
	})
}
