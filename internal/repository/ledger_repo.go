package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpwall/backend/internal/models"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// CreateTx inserts a ledger entry inside the settlement transaction.
func (r *LedgerRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_ledger (id, user_id, task_id, change_amount, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.UserID, e.TaskID, e.ChangeAmount, e.BalanceAfter).Scan(&e.CreatedAt)
}

func (r *LedgerRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, task_id, change_amount, balance_after, created_at
		FROM credit_ledger WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLedgerEntries(rows)
}

// SumByUser reconstructs a member's balance from the ledger. Used to verify
// the cached users.credit_balance, which is only a read optimization.
func (r *LedgerRepo) SumByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum int
	err := r.pool.QueryRow(ctx, `
		SELECT coalesce(sum(change_amount), 0) FROM credit_ledger WHERE user_id = $1
	`, userID).Scan(&sum)
	return sum, err
}

func scanLedgerEntries(rows pgx.Rows) ([]*models.LedgerEntry, error) {
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TaskID, &e.ChangeAmount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
