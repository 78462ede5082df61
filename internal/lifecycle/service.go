package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpwall/backend/internal/models"
)

// State-machine errors. State conflicts are expected, recoverable races: the
// caller re-fetches the task and re-renders rather than retrying blindly.
var (
	ErrTaskNotFound               = errors.New("task not found")
	ErrNotOwner                   = errors.New("caller is not the task owner")
	ErrOwnTask                    = errors.New("cannot help with your own task")
	ErrTaskAlreadyAssigned        = errors.New("task already assigned")
	ErrTaskNotOpen                = errors.New("task is no longer open")
	ErrTaskNotOpenForApplications = errors.New("task not open for applications")
	ErrAlreadyApplied             = errors.New("already applied to this task")
	ErrReviewRequired             = errors.New("task requires applicant review")
	ErrNotApplicant               = errors.New("candidate has not applied")
	ErrInvalidExpectedMinutes     = errors.New("expected minutes must be 5-30 in 5 minute steps")
)

// TaskStore is the task repository surface the state machine needs. The
// Assign* and Update* methods are conditional updates: the store evaluates
// the status precondition at commit time and reports rows affected, so a
// read-then-write race cannot double-assign a task.
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	AssignDirect(ctx context.Context, taskID, helperID uuid.UUID) (int64, error)
	AssignApproved(ctx context.Context, taskID, ownerID, candidateID uuid.UUID) (int64, error)
	DeleteOpen(ctx context.Context, taskID, ownerID uuid.UUID) (int64, error)
	UpdateDescription(ctx context.Context, taskID, ownerID uuid.UUID, description string) (int64, error)
	UpdateImageURL(ctx context.Context, taskID, ownerID uuid.UUID, imageURL string) (int64, error)
	UpdateExpectedMinutes(ctx context.Context, taskID, ownerID uuid.UUID, minutes, creditValue int) (int64, error)
	ListOpen(ctx context.Context) ([]*models.Task, error)
}

// ApplicantStore is the applicant list surface. Add is append-only; a repeat
// application by the same candidate is a store-level unique violation.
type ApplicantStore interface {
	Add(ctx context.Context, taskID, candidateID uuid.UUID) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Applicant, error)
	Exists(ctx context.Context, taskID, candidateID uuid.UUID) (bool, error)
}

type Service struct {
	tasks      TaskStore
	applicants ApplicantStore
	log        *slog.Logger
}

func NewService(tasks TaskStore, applicants ApplicantStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{tasks: tasks, applicants: applicants, log: log}
}

// Apply adds candidateID to the applicant list of an open review task.
func (s *Service) Apply(ctx context.Context, taskID, candidateID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.OwnerID == candidateID {
		return ErrOwnTask
	}
	if !task.RequiresReview || task.Status != models.TaskStatusOpen {
		return ErrTaskNotOpenForApplications
	}
	if err := s.applicants.Add(ctx, taskID, candidateID); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyApplied
		}
		return err
	}
	return nil
}

// Approve is the owner's terminal choice among applicants: it sets the helper
// and moves the task to in_progress. Remaining applicants are never pruned;
// they simply stay recorded and unselected.
func (s *Service) Approve(ctx context.Context, taskID, callerID, candidateID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.OwnerID != callerID {
		return ErrNotOwner
	}
	if !task.RequiresReview {
		return ErrTaskNotOpenForApplications
	}
	if task.Status != models.TaskStatusOpen {
		return ErrTaskAlreadyAssigned
	}
	applied, err := s.applicants.Exists(ctx, taskID, candidateID)
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotApplicant
	}
	rows, err := s.tasks.AssignApproved(ctx, taskID, callerID, candidateID)
	if err != nil {
		return err
	}
	if rows == 0 {
		// Lost a race with a concurrent approve.
		return ErrTaskAlreadyAssigned
	}
	return nil
}

// AcceptDirect claims an open non-review task for helperID. The single
// conditional update means exactly one of N concurrent callers wins; the
// rest get ErrTaskAlreadyAssigned.
func (s *Service) AcceptDirect(ctx context.Context, taskID, helperID uuid.UUID) error {
	rows, err := s.tasks.AssignDirect(ctx, taskID, helperID)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	// Precondition failed at commit time; re-read to tell the caller why.
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	switch {
	case task.OwnerID == helperID:
		return ErrOwnTask
	case task.RequiresReview:
		return ErrReviewRequired
	default:
		return ErrTaskAlreadyAssigned
	}
}

// Delete removes a task, owner-only and only while still open. No ledger or
// gratitude state exists yet at that point, so nothing cascades.
func (s *Service) Delete(ctx context.Context, taskID, callerID uuid.UUID) error {
	rows, err := s.tasks.DeleteOpen(ctx, taskID, callerID)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	return s.explainOwnerOpenFailure(ctx, taskID, callerID)
}

func (s *Service) UpdateDescription(ctx context.Context, taskID, callerID uuid.UUID, description string) error {
	rows, err := s.tasks.UpdateDescription(ctx, taskID, callerID, description)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	return s.explainOwnerOpenFailure(ctx, taskID, callerID)
}

func (s *Service) UpdateImageURL(ctx context.Context, taskID, callerID uuid.UUID, imageURL string) error {
	rows, err := s.tasks.UpdateImageURL(ctx, taskID, callerID, imageURL)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	return s.explainOwnerOpenFailure(ctx, taskID, callerID)
}

// UpdateExpectedMinutes changes the expected duration and recomputes the
// credit value with the fixed ratio. Once the task leaves open the credit
// value is frozen, so the conditional update refuses assigned tasks.
func (s *Service) UpdateExpectedMinutes(ctx context.Context, taskID, callerID uuid.UUID, minutes int) error {
	if !models.ValidExpectedMinutes(minutes) {
		return ErrInvalidExpectedMinutes
	}
	rows, err := s.tasks.UpdateExpectedMinutes(ctx, taskID, callerID, minutes, minutes/models.CreditMinutesPerUnit)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	return s.explainOwnerOpenFailure(ctx, taskID, callerID)
}

func (s *Service) Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	return s.getTask(ctx, taskID)
}

func (s *Service) ListOpen(ctx context.Context) ([]*models.Task, error) {
	return s.tasks.ListOpen(ctx)
}

func (s *Service) Applicants(ctx context.Context, taskID uuid.UUID) ([]*models.Applicant, error) {
	return s.applicants.ListByTask(ctx, taskID)
}

func (s *Service) getTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return task, err
}

// explainOwnerOpenFailure distinguishes why an owner-and-open conditional
// update matched no rows.
func (s *Service) explainOwnerOpenFailure(ctx context.Context, taskID, callerID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.OwnerID != callerID {
		return ErrNotOwner
	}
	return ErrTaskNotOpen
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
