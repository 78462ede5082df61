package gratitude

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpwall/backend/internal/models"
	"github.com/helpwall/backend/internal/notify"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrNotOwner             = errors.New("caller is not the task owner")
	ErrTaskNotCompleted     = errors.New("task is not completed")
	ErrEmptyMessage         = errors.New("message must not be empty")
	ErrGratitudeAlreadySent = errors.New("gratitude already sent for this task")
	ErrCardNotFound         = errors.New("gratitude card not found")
	ErrNotReceiver          = errors.New("caller is not the card receiver")
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

type CardStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, c *models.GratitudeCard) error
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.GratitudeCard, error)
	MarkRead(ctx context.Context, taskID, receiverID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, receiverID uuid.UUID) (int64, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*models.GratitudeCard, error)
	ListUnreadByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*models.GratitudeCard, error)
}

// EnqueueThanksNotificationTxFunc queues the fan-out job within the given
// transaction. Provided by main as a closure over river.Client.InsertTx.
type EnqueueThanksNotificationTxFunc func(ctx context.Context, tx pgx.Tx, args notify.ThanksNotificationArgs) error

type Service struct {
	pool    TxBeginner
	tasks   TaskStore
	cards   CardStore
	enqueue EnqueueThanksNotificationTxFunc
	log     *slog.Logger
}

func NewService(pool TxBeginner, tasks TaskStore, cards CardStore, enqueue EnqueueThanksNotificationTxFunc, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{pool: pool, tasks: tasks, cards: cards, enqueue: enqueue, log: log}
}

// SendThanks creates the one-shot gratitude card for a completed task. The
// at-most-one-per-task rule is the store's primary key, not a prior read, so
// a concurrent double-submit loses with ErrGratitudeAlreadySent instead of
// silently overwriting.
func (s *Service) SendThanks(ctx context.Context, taskID, callerID uuid.UUID, message string) (*models.GratitudeCard, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if task.Status != models.TaskStatusCompleted || task.HelperID == nil {
		return nil, ErrTaskNotCompleted
	}

	card := &models.GratitudeCard{
		TaskID:     taskID,
		SenderID:   task.OwnerID,
		ReceiverID: *task.HelperID,
		Message:    message,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.cards.CreateTx(ctx, tx, card); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrGratitudeAlreadySent
		}
		return nil, err
	}
	if err := s.enqueue(ctx, tx, notify.ThanksNotificationArgs{
		TaskID:     taskID,
		ReceiverID: card.ReceiverID,
		Message:    card.Message,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return card, nil
}

// MarkRead flips is_read for the receiver. Idempotent: re-reading an
// already-read card succeeds.
func (s *Service) MarkRead(ctx context.Context, taskID, callerID uuid.UUID) error {
	rows, err := s.cards.MarkRead(ctx, taskID, callerID)
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}
	card, err := s.cards.GetByTaskID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCardNotFound
	}
	if err != nil {
		return err
	}
	if card.ReceiverID != callerID {
		return ErrNotReceiver
	}
	return nil
}

// MarkAllRead clears the caller's unread badge in one statement.
func (s *Service) MarkAllRead(ctx context.Context, callerID uuid.UUID) (int64, error) {
	return s.cards.MarkAllRead(ctx, callerID)
}

func (s *Service) ForTask(ctx context.Context, taskID uuid.UUID) (*models.GratitudeCard, error) {
	card, err := s.cards.GetByTaskID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	return card, err
}

func (s *Service) ListReceived(ctx context.Context, userID uuid.UUID) ([]*models.GratitudeCard, error) {
	return s.cards.ListByReceiver(ctx, userID)
}

func (s *Service) ListUnread(ctx context.Context, userID uuid.UUID) ([]*models.GratitudeCard, error) {
	return s.cards.ListUnreadByReceiver(ctx, userID)
}
