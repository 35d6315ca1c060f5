package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus is the closed set of registration states. New accounts start
// as pending and stay locked out of the console until an admin approves them.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

type User struct {
	ID             uuid.UUID      `json:"id"`
	Email          string         `json:"email"`
	Username       string         `json:"username"`
	DisplayName    string         `json:"display_name"`
	PasswordHash   string         `json:"-"`
	AvatarURL      *string        `json:"avatar_url,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	ApprovedBy     *uuid.UUID     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
