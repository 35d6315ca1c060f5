package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Hub manages all active WebSocket clients and routes messages.
type Hub struct {
	// clients maps userID → client. Guarded by mu: Run mutates the map
	// while notifier fanout reads it from request goroutines. Sends happen
	// under the lock so Run cannot close a send channel mid-send.
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
}

type broadcastMsg struct {
	chatID    uuid.UUID
	data      []byte
	excludeID *uuid.UUID // optional: skip this user (e.g. sender)
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("ws hub: user %s connected (%d total)", client.userID, total)

			h.broadcastPresence(client.userID, "online")

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.userID]
			if ok {
				delete(h.clients, client.userID)
				close(client.send)
				close(client.done)
			}
			total := len(h.clients)
			h.mu.Unlock()
			if ok {
				log.Printf("ws hub: user %s disconnected (%d total)", client.userID, total)

				h.broadcastPresence(client.userID, "offline")
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			for _, client := range h.clients {
				if msg.excludeID != nil && client.userID == *msg.excludeID {
					continue
				}
				// Only send to clients subscribed to this chat
				if !client.IsSubscribed(msg.chatID) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					delete(h.clients, client.userID)
					close(client.send)
					close(client.done)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToChat sends an event to all subscribers of a chat.
func (h *Hub) BroadcastToChat(chatID uuid.UUID, event *Event, excludeUserID *uuid.UUID) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	h.broadcast <- &broadcastMsg{
		chatID:    chatID,
		data:      data,
		excludeID: excludeUserID,
	}
}

// BroadcastToUser sends an event directly to a specific user.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[userID]; ok {
		select {
		case client.send <- data:
		default:
		}
	}
}

// BroadcastToApprovalWatchers fans an event out to clients watching the
// registration approval feed.
func (h *Hub) BroadcastToApprovalWatchers(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.WatchesApprovals() {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// HandleTyping broadcasts typing events to chat subscribers (excluding sender).
func (h *Hub) HandleTyping(sender *Client, event *Event) {
	chatID := *event.ChatID

	if event.Type != EventTypeTypingStart {
		return // typing.stop doesn't need broadcast, frontend uses timeout
	}

	evt, err := NewEvent(EventTypeTyping, &chatID, TypingPayload{
		UserID: sender.userID,
	})
	if err != nil {
		return
	}

	h.BroadcastToChat(chatID, evt, &sender.userID)
}

// broadcastPresence sends online/offline to all connected clients.
func (h *Hub) broadcastPresence(userID uuid.UUID, status string) {
	evt, err := NewEvent(EventTypePresence, nil, PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.userID == userID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}
