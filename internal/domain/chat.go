package domain

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
}

type ChatMember struct {
	ChatID        uuid.UUID  `json:"chat_id"`
	UserID        uuid.UUID  `json:"user_id"`
	LastReadMsgID *uuid.UUID `json:"last_read_msg_id,omitempty"`
	JoinedAt      time.Time  `json:"joined_at"`
	// Joined fields
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}
