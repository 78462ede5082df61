package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. A task with no helper is open; assignment and
// completion are one-way transitions.
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// CreditMinutesPerUnit is the fixed ratio between expected minutes and the
// time-credit value of a task: credit_value = expected_minutes / 5.
const CreditMinutesPerUnit = 5

// Notification targets accepted on task creation.
const (
	NotifyTargetAll       = "all"
	NotifyTargetProximity = "proximity"
	NotifyTargetGroup     = "group"
)

// ValidExpectedMinutes reports whether minutes is one of the supported
// discrete durations (5..30 in 5-minute steps).
func ValidExpectedMinutes(minutes int) bool {
	return minutes >= 5 && minutes <= 30 && minutes%5 == 0
}

type Task struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ImageURL        string     `json:"image_url,omitempty"`
	Lat             float64    `json:"lat"`
	Lng             float64    `json:"lng"`
	ExpectedMinutes int        `json:"expected_minutes"`
	CreditValue     int        `json:"credit_value"`
	RequiresReview  bool       `json:"requires_review"`
	HelperID        *uuid.UUID `json:"helper_id,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Applicant is one candidate helper on a review-required task. Rows are
// append-only; once a helper is approved the remaining rows stay recorded
// but are never converted to an assignment.
type Applicant struct {
	TaskID      uuid.UUID `json:"task_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
