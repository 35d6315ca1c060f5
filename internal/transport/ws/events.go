package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeChatSubscribe      = "chat.subscribe"
	EventTypeChatUnsubscribe    = "chat.unsubscribe"
	EventTypeApprovalsSubscribe = "approvals.subscribe"
	EventTypeTypingStart        = "typing.start"
	EventTypeTypingStop         = "typing.stop"
	EventTypePing               = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageNew      = "message.new"
	EventTypeMessageEdited   = "message.edited"
	EventTypeMessageDeleted  = "message.deleted"
	EventTypeMessageRecalled = "message.recalled"
	EventTypeReactionAdded   = "reaction.added"
	EventTypeReactionRemoved = "reaction.removed"
	EventTypeUserPending     = "user.pending"
	EventTypeUserApproved    = "user.approved"
	EventTypeUserRejected    = "user.rejected"
	EventTypeTyping          = "typing"
	EventTypePresence        = "presence"
	EventTypePong            = "pong"
	EventTypeError           = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	ChatID    *uuid.UUID      `json:"chat_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ChatPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

type MessageRefPayload struct {
	ID uuid.UUID `json:"id"`
}

type ReactionPayload struct {
	domain.Reaction
}

type PendingUserPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
}

type ApprovalResolvedPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "approved" | "rejected"
}

type TypingPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, chatID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		ChatID:    chatID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
