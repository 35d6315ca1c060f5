// Package feed implements the client-side chat feed machinery: an optimistic
// message store that blends server-confirmed messages with locally-initiated
// sends that have not been acknowledged yet, and the windowing math used to
// render only the visible slice of a long history.
//
// The store is transport-agnostic: sends go through the Sender interface and
// realtime echoes are fed in through Reconcile, so tests and alternative
// transports can substitute their own backend handle.
package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a message in the local feed.
type Status string

const (
	// StatusPending marks a locally-inserted message awaiting server ack.
	StatusPending Status = "pending"
	// StatusConfirmed marks a message acknowledged by the server or
	// delivered through the realtime channel.
	StatusConfirmed Status = "confirmed"
	// StatusFailed marks a send the server rejected. Failed messages stay
	// visible until the user resends or removes them.
	StatusFailed Status = "failed"
)

// Message is one entry in the feed. ID is zero until the server assigns one;
// ClientKey identifies the message across the optimistic/confirmed boundary.
type Message struct {
	ID         uuid.UUID `json:"id"`
	ClientKey  string    `json:"client_key,omitempty"`
	ChatID     uuid.UUID `json:"chat_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	MediaURL   string    `json:"media_url,omitempty"`
	Status     Status    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	IsEdited   bool      `json:"is_edited"`
	Timestamp  time.Time `json:"timestamp"`
}

// SendRequest is the payload handed to the Sender for one message insert.
// ClientKey is filled in by the store and echoed back by the server on both
// the synchronous response and the realtime event.
type SendRequest struct {
	ChatID    uuid.UUID `json:"chat_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	MediaURL  string    `json:"media_url,omitempty"`
	ClientKey string    `json:"client_key"`
}

// Sender issues the backend insert call for a message.
type Sender interface {
	SendMessage(ctx context.Context, req SendRequest) (*Message, error)
}
