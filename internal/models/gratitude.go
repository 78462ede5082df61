package models

import (
	"time"

	"github.com/google/uuid"
)

// GratitudeCard is the one-shot thank-you from a task's owner to its helper.
// task_id is the primary key, so at most one card can ever exist per task and
// concurrent double-submits are rejected by the store itself.
type GratitudeCard struct {
	TaskID     uuid.UUID `json:"task_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
