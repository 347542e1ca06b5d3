// internal/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"namy-service/internal/domain/coupon"

	"go.uber.org/zap"
)

// Hub fans countdown ticks out to the coupon views watching each code. It
// implements lifecycle.Broadcaster.
type Hub struct {
	// Registered clients by coupon code
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client

	ticks  chan tickMessage
	logger *zap.Logger
}

type tickMessage struct {
	Code      string               `json:"code"`
	Remaining coupon.TimeRemaining `json:"remaining"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		ticks:      make(chan tickMessage, 256),
		logger:     logger,
	}
}

// PublishTick queues a countdown snapshot for every client watching code.
func (h *Hub) PublishTick(code string, remaining coupon.TimeRemaining) {
	select {
	case h.ticks <- tickMessage{Code: code, Remaining: remaining}:
	default:
		// A slow hub drops the tick; the next one arrives in a second.
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.ticks:
			h.broadcast(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.code] == nil {
		h.clients[client.code] = make(map[*Client]bool)
	}
	h.clients[client.code][client] = true

	h.logger.Debug("countdown client registered", zap.String("code", client.code))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.clients[client.code]
	if !ok || !watchers[client] {
		return
	}
	delete(watchers, client)
	if len(watchers) == 0 {
		delete(h.clients, client.code)
	}
	close(client.send)

	if client.onClose != nil {
		client.onClose()
	}
}

func (h *Hub) broadcast(msg tickMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal tick", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[msg.Code] {
		select {
		case client.send <- data:
		default:
			// Slow client: skip this tick rather than block the hub.
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for code, watchers := range h.clients {
		for client := range watchers {
			close(client.send)
			if client.onClose != nil {
				client.onClose()
			}
		}
		delete(h.clients, code)
	}
}
