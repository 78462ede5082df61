package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpwall/backend/internal/models"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotOwner          = errors.New("caller is not the task owner")
	ErrTaskNotInProgress = errors.New("task is not in progress")
	// ErrLedgerWriteFailed wraps any failure occurring after the transaction
	// opened. The transaction is rolled back, so no half-settled state is
	// observable: the task stays in_progress and no balance moves.
	ErrLedgerWriteFailed = errors.New("ledger write failed")
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TaskStore is the task repository surface settlement needs. CompleteTx is a
// conditional update keyed on status = in_progress evaluated inside the
// settlement transaction.
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	CompleteTx(ctx context.Context, tx pgx.Tx, taskID, ownerID uuid.UUID) (int64, error)
}

// BalanceStore applies signed increments to the cached member balance.
type BalanceStore interface {
	AdjustBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (int, error)
}

// LedgerStore appends immutable ledger entries.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
}

// Service performs the time-credit transfer at task completion: debit the
// owner, credit the helper, write the paired ledger entries, and flip the
// task to completed, all in one durable unit of work.
type Service struct {
	pool   TxBeginner
	tasks  TaskStore
	users  BalanceStore
	ledger LedgerStore
	log    *slog.Logger
}

func NewService(pool TxBeginner, tasks TaskStore, users BalanceStore, ledger LedgerStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{pool: pool, tasks: tasks, users: users, ledger: ledger, log: log}
}

// Complete settles the task. Caller must be the owner and the task must be
// in_progress with a helper set. The owner's balance may go negative: there
// is no minimum-balance precondition on a social time-credit ledger.
func (s *Service) Complete(ctx context.Context, taskID, callerID uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	// Authorization and state checks before any write.
	if task.OwnerID != callerID {
		return ErrNotOwner
	}
	if task.Status != models.TaskStatusInProgress || task.HelperID == nil {
		return ErrTaskNotInProgress
	}
	helperID := *task.HelperID
	credit := task.CreditValue

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Re-check the precondition inside the transaction. Zero rows means a
	// concurrent completion (or other transition) got there first.
	rows, err := s.tasks.CompleteTx(ctx, tx, taskID, callerID)
	if err != nil {
		return fmt.Errorf("%w: complete task: %v", ErrLedgerWriteFailed, err)
	}
	if rows == 0 {
		return ErrTaskNotInProgress
	}

	ownerBalance, err := s.users.AdjustBalanceTx(ctx, tx, task.OwnerID, -credit)
	if err != nil {
		return fmt.Errorf("%w: debit owner: %v", ErrLedgerWriteFailed, err)
	}
	helperBalance, err := s.users.AdjustBalanceTx(ctx, tx, helperID, credit)
	if err != nil {
		return fmt.Errorf("%w: credit helper: %v", ErrLedgerWriteFailed, err)
	}

	// Paired entries, equal and opposite, both referencing the task: the sum
	// of ledger entries per task is always zero.
	debit := &models.LedgerEntry{
		ID:           uuid.New(),
		UserID:       task.OwnerID,
		TaskID:       taskID,
		ChangeAmount: -credit,
		BalanceAfter: &ownerBalance,
	}
	if err := s.ledger.CreateTx(ctx, tx, debit); err != nil {
		return fmt.Errorf("%w: owner entry: %v", ErrLedgerWriteFailed, err)
	}
	creditEntry := &models.LedgerEntry{
		ID:           uuid.New(),
		UserID:       helperID,
		TaskID:       taskID,
		ChangeAmount: credit,
		BalanceAfter: &helperBalance,
	}
	if err := s.ledger.CreateTx(ctx, tx, creditEntry); err != nil {
		return fmt.Errorf("%w: helper entry: %v", ErrLedgerWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrLedgerWriteFailed, err)
	}

	s.log.Info("task settled",
		"task_id", taskID, "owner_id", task.OwnerID, "helper_id", helperID, "credit", credit)
	return nil
}
