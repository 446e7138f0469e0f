package sse

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/notification"
)

const (
	eventHeartbeat    = "heartbeat"
	heartbeatInterval = 25 * time.Second
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meetup",
		Subsystem: "sse",
		Name:      "connected_clients",
		Help:      "Currently registered SSE clients.",
	})
	droppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetup",
		Subsystem: "sse",
		Name:      "dropped_messages_total",
		Help:      "Messages dropped because a client's buffer was full.",
	})
)

// Hub manages SSE clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*notification.SSEClient
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*notification.SSEClient),
		interval: heartbeatInterval,
		logger:   logger.With().Str("component", "sse-hub").Logger(),
	}
}

func (h *Hub) Register(client *notification.SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[client.ClientID]; ok {
		old.Close()
	} else {
		connectedClients.Inc()
	}
	h.clients[client.ClientID] = client
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		c.Close()
		delete(h.clients, clientID)
		connectedClients.Dec()
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToUser(userID string, message *notification.SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID != nil && *c.UserID == userID {
			h.trySend(c, message)
		}
	}
}

func (h *Hub) SendToClient(clientID string, message *notification.SSEMessage) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := h.clients[clientID]
	if c == nil {
		return notification.ErrClientNotFound
	}
	if !h.trySend(c, message) {
		return notification.ErrChannelFull
	}
	return nil
}

// Start sends periodic heartbeats so idle connections survive proxies.
func (h *Hub) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.heartbeat()
			}
		}
	}()
}

func (h *Hub) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
		connectedClients.Dec()
	}
}

func (h *Hub) heartbeat() {
	msg := notification.NewSSEMessage(eventHeartbeat, []byte(`{}`))
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.trySend(c, msg)
	}
}

// trySend must be called with at least the read lock held so Unregister
// cannot close the channel mid-send.
func (h *Hub) trySend(c *notification.SSEClient, msg *notification.SSEMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		droppedMessages.Inc()
		h.logger.Warn().Str("clientId", c.ClientID).Str("event", msg.Event).Msg("SSE client buffer full, message dropped")
		return false
	}
}
