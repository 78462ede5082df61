package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpwall/backend/internal/models"
)

type GratitudeRepo struct {
	pool *pgxpool.Pool
}

func NewGratitudeRepo(pool *pgxpool.Pool) *GratitudeRepo {
	return &GratitudeRepo{pool: pool}
}

// CreateTx inserts the card inside the caller's transaction. thanks_cards has
// task_id as its primary key, so a second card for the same task surfaces as
// a unique violation rather than an overwrite.
func (r *GratitudeRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.GratitudeCard) error {
	return tx.QueryRow(ctx, `
		INSERT INTO thanks_cards (task_id, sender_id, receiver_id, message, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING created_at
	`, c.TaskID, c.SenderID, c.ReceiverID, c.Message).Scan(&c.CreatedAt)
}

func (r *GratitudeRepo) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.GratitudeCard, error) {
	var c models.GratitudeCard
	err := r.pool.QueryRow(ctx, `
		SELECT task_id, sender_id, receiver_id, message, is_read, created_at
		FROM thanks_cards WHERE task_id = $1
	`, taskID).Scan(&c.TaskID, &c.SenderID, &c.ReceiverID, &c.Message, &c.IsRead, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkRead flips is_read, receiver-only. Re-running it on an already-read
// card still matches one row, which is what makes the operation idempotent.
func (r *GratitudeRepo) MarkRead(ctx context.Context, taskID, receiverID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE thanks_cards SET is_read = TRUE WHERE task_id = $1 AND receiver_id = $2
	`, taskID, receiverID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *GratitudeRepo) MarkAllRead(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE thanks_cards SET is_read = TRUE WHERE receiver_id = $1 AND is_read = FALSE
	`, receiverID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *GratitudeRepo) ListByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*models.GratitudeCard, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT task_id, sender_id, receiver_id, message, is_read, created_at
		FROM thanks_cards WHERE receiver_id = $1 ORDER BY created_at DESC
	`, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (r *GratitudeRepo) ListUnreadByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*models.GratitudeCard, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT task_id, sender_id, receiver_id, message, is_read, created_at
		FROM thanks_cards WHERE receiver_id = $1 AND is_read = FALSE ORDER BY created_at DESC
	`, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (r *GratitudeRepo) CountByReceiver(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM thanks_cards WHERE receiver_id = $1
	`, receiverID).Scan(&n)
	return n, err
}

func scanCards(rows pgx.Rows) ([]*models.GratitudeCard, error) {
	var list []*models.GratitudeCard
	for rows.Next() {
		var c models.GratitudeCard
		if err := rows.Scan(&c.TaskID, &c.SenderID, &c.ReceiverID, &c.Message, &c.IsRead, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
