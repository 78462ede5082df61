package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpwall/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var m models.Member
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, avatar_url, credit_balance, notify_enabled, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&m.ID, &m.DisplayName, &m.AvatarURL, &m.CreditBalance, &m.NotifyEnabled, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AdjustBalanceTx applies a signed increment to the cached balance and
// returns the new value. Negative results are allowed: credits are a social
// ledger, not a strict bank account, so there is no floor on a requester's
// balance. Call within the settlement transaction.
func (r *UserRepo) AdjustBalanceTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING credit_balance
	`, delta, id).Scan(&newBalance)
	return newBalance, err
}

func (r *UserRepo) SetNotifyEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET notify_enabled = $2, updated_at = now() WHERE id = $1
	`, id, enabled)
	return err
}
