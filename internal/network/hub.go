package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/CrewAging/server/internal/events"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/logger"
	"github.com/MRamiBalles/CrewAging/server/internal/platform/metrics"
)

// feedMessage is one serialized lifecycle event bound for the feed.
type feedMessage struct {
	crew string
	data []byte
}

// Hub maintains the set of active clients and broadcasts lifecycle events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan feedMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub.
func NewHub(log *logger.Logger, m *metrics.Collector) *Hub {
	return &Hub{
		broadcast:  make(chan feedMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return nil
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordFeedClient(1)
			h.logger.Debug("feed client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordFeedClient(-1)
				h.logger.Debug("feed client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.accepts(message.crew) {
					continue
				}
				select {
				case client.send <- message.data:
				default:
					// Slow consumer; drop it rather than stall the feed.
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordFeedClient(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes a lifecycle event and queues it for every client.
func (h *Hub) BroadcastEvent(ctx context.Context, event events.LifecycleEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to serialize lifecycle event for broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- feedMessage{crew: event.CrewName, data: payload}:
	case <-ctx.Done():
	}
}

// StartEventPoller polls the EventLog and pushes new events to the Hub.
// Events already in the log when it starts (restored history) are skipped.
// This lets the Hub run independently of the engine's worker.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	pollInterval := time.NewTicker(interval)
	defer pollInterval.Stop()

	lastProcessedEvent := eventLog.Len()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pollInterval.C:
			newEvents := eventLog.Since(lastProcessedEvent)
			for _, event := range newEvents {
				h.BroadcastEvent(ctx, event)
			}
			lastProcessedEvent += len(newEvents)
		}
	}
}
