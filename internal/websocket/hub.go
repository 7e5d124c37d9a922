package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-agenthub-be/internal/model"
	"ai-agenthub-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel carries serialized frames between instances over Redis so
// a user connected elsewhere still receives their notifications.
const clusterChannel = "notifications.cluster"

// broadcastTarget marks a cluster frame addressed to every connected user.
const broadcastTarget = "*"

type clusterFrame struct {
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

// Hub tracks connected clients per user and fans notification frames out to
// them. Without Redis it degrades to single-instance delivery.
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.relayClusterFrames()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Last client disconnected", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Send delivers a notification to every connection the user holds, locally
// and via Redis on other instances. Implements service.NotificationDelivery.
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	frame := encodeFrame(notification)

	h.mu.RLock()
	h.deliver(h.clients[userID], frame)
	h.mu.RUnlock()

	h.publishClusterFrame(userID.String(), frame)
}

// Broadcast delivers a notification to all connected clients.
func (h *Hub) Broadcast(notification model.Notification) {
	frame := encodeFrame(notification)

	h.mu.RLock()
	for _, clients := range h.clients {
		h.deliver(clients, frame)
	}
	h.mu.RUnlock()

	h.publishClusterFrame(broadcastTarget, frame)
}

func encodeFrame(notification model.Notification) []byte {
	frame, _ := json.Marshal(map[string]interface{}{
		"type": "notification",
		"data": notification,
	})
	return frame
}

// deliver queues a frame on each client. A full buffer means a consumer has
// stalled; the connection is dropped rather than blocking the hub.
func (h *Hub) deliver(clients []*Client, frame []byte) {
	for _, client := range clients {
		select {
		case client.Send <- frame:
		default:
			h.logger.Warn("Hub", "Send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) publishClusterFrame(target string, frame []byte) {
	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(clusterFrame{TargetUserID: target, Message: frame})
	h.rdb.Publish(context.Background(), clusterChannel, payload)
}

// relayClusterFrames forwards frames published by other instances to locally
// connected clients. Every instance subscribes; each delivers only to the
// users it holds.
func (h *Hub) relayClusterFrames() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var frame clusterFrame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			h.logger.Warn("Hub", "Malformed cluster frame", map[string]interface{}{"error": err.Error()})
			continue
		}

		if frame.TargetUserID == broadcastTarget {
			h.mu.RLock()
			for _, clients := range h.clients {
				h.deliver(clients, frame.Message)
			}
			h.mu.RUnlock()
			continue
		}

		uid, err := uuid.Parse(frame.TargetUserID)
		if err != nil {
			continue
		}

		h.mu.RLock()
		h.deliver(h.clients[uid], frame.Message)
		h.mu.RUnlock()
	}
}
