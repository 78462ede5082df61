package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is the marketplace profile row for an authenticated user. Identity
// (login, tokens) lives with the external identity collaborator; the core
// only trusts the id it hands us.
type Member struct {
	ID            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreditBalance int       `json:"credit_balance"`
	NotifyEnabled bool      `json:"notify_enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
