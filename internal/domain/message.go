package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType is the closed set of message content tags.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeFile     MessageType = "file"
	MessageTypeLink     MessageType = "link"
	MessageTypeLocation MessageType = "location"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo,
		MessageTypeFile, MessageTypeLink, MessageTypeLocation:
		return true
	}
	return false
}

// EditSnapshot is one prior version of a message, captured before an edit
// overwrote it. The live content is never part of the history.
type EditSnapshot struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"edited_at"`
}

type Message struct {
	ID        uuid.UUID   `json:"id"`
	ChatID    uuid.UUID   `json:"chat_id"`
	SenderID  uuid.UUID   `json:"sender_id"`
	// ClientKey is the sender-generated send key, echoed back on realtime
	// events so clients can match optimistic entries exactly.
	ClientKey   *string        `json:"client_key,omitempty"`
	Content     *string        `json:"content,omitempty"`
	Type        MessageType    `json:"type"`
	MediaURL    *string        `json:"media_url,omitempty"`
	MediaType   *string        `json:"media_type,omitempty"`
	MediaSize   *int64         `json:"media_size,omitempty"`
	EditHistory []EditSnapshot `json:"edit_history,omitempty"`
	IsEdited    bool           `json:"is_edited"`
	RecalledAt  *time.Time     `json:"recalled_at,omitempty"`
	DeletedAt   *time.Time     `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	// Joined fields
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// Reaction is unique per (message, user, emoji); toggling adds or removes it.
type Reaction struct {
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
