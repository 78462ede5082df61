package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/helpwall/backend/internal/models"
)

// Validation errors, rejected before any write.
var (
	ErrTitleRequired          = errors.New("title must not be empty")
	ErrInvalidExpectedMinutes = errors.New("expected minutes must be 5-30 in 5 minute steps")
	ErrInvalidLocation        = errors.New("location out of range")
	ErrInvalidNotifyTarget    = errors.New("notify target must be all, proximity, or group")
)

type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
}

// Notifier is the external dispatch collaborator. It decides who to tell
// about a new task and reports how many members it reached. Its failures are
// logged, never propagated: the task is already durable by the time it runs.
type Notifier interface {
	NotifyTaskCreated(ctx context.Context, taskID uuid.UUID, lat, lng float64, target string) (notified int, err error)
}

type CreateParams struct {
	Title           string
	Description     string
	ImageURL        string
	Lat             float64
	Lng             float64
	ExpectedMinutes int
	RequiresReview  bool
	NotifyTarget    string
}

type Service struct {
	tasks    TaskStore
	notifier Notifier
	log      *slog.Logger
}

func NewService(tasks TaskStore, notifier Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{tasks: tasks, notifier: notifier, log: log}
}

// CreateTask validates, persists the task in the open state, and asks the
// dispatch collaborator to fan out. The returned notified count is
// informational only.
func (s *Service) CreateTask(ctx context.Context, ownerID uuid.UUID, p CreateParams) (*models.Task, int, error) {
	if p.Title == "" {
		return nil, 0, ErrTitleRequired
	}
	if !models.ValidExpectedMinutes(p.ExpectedMinutes) {
		return nil, 0, ErrInvalidExpectedMinutes
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return nil, 0, ErrInvalidLocation
	}
	if p.NotifyTarget == "" {
		p.NotifyTarget = models.NotifyTargetProximity
	}
	switch p.NotifyTarget {
	case models.NotifyTargetAll, models.NotifyTargetProximity, models.NotifyTargetGroup:
	default:
		return nil, 0, ErrInvalidNotifyTarget
	}

	task := &models.Task{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Title:           p.Title,
		Description:     p.Description,
		ImageURL:        p.ImageURL,
		Lat:             p.Lat,
		Lng:             p.Lng,
		ExpectedMinutes: p.ExpectedMinutes,
		CreditValue:     p.ExpectedMinutes / models.CreditMinutesPerUnit,
		RequiresReview:  p.RequiresReview,
		Status:          models.TaskStatusOpen,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, 0, err
	}

	notified, err := s.notifier.NotifyTaskCreated(ctx, task.ID, task.Lat, task.Lng, p.NotifyTarget)
	if err != nil {
		// Non-fatal: creation is already durable.
		s.log.Warn("task notification dispatch failed", "task_id", task.ID, "error", err)
		notified = 0
	}
	return task, notified, nil
}
