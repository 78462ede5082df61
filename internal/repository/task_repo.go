package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpwall/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, owner_id, title, description, image_url, lat, lng, expected_minutes, credit_value, requires_review, helper_id, status, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.ImageURL, &t.Lat, &t.Lng, &t.ExpectedMinutes, &t.CreditValue, &t.RequiresReview, &t.HelperID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, owner_id, title, description, image_url, lat, lng, expected_minutes, credit_value, requires_review, helper_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.OwnerID, t.Title, t.Description, t.ImageURL, t.Lat, t.Lng, t.ExpectedMinutes, t.CreditValue, t.RequiresReview, t.HelperID, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id))
}

// AssignDirect claims an open, non-review task for helperID. The precondition
// is evaluated by Postgres at commit time, so exactly one of N concurrent
// attempts can succeed. Returns the number of rows updated (0 or 1).
func (r *TaskRepo) AssignDirect(ctx context.Context, taskID, helperID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET helper_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND requires_review = FALSE AND owner_id <> $2
	`, taskID, helperID, models.TaskStatusInProgress, models.TaskStatusOpen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AssignApproved assigns candidateID to an open review task owned by ownerID,
// but only if the candidate actually applied. Same conditional-update contract
// as AssignDirect.
func (r *TaskRepo) AssignApproved(ctx context.Context, taskID, ownerID, candidateID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET helper_id = $3, status = $4, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND status = $5 AND requires_review = TRUE
		  AND EXISTS (SELECT 1 FROM task_applicants WHERE task_id = $1 AND candidate_id = $3)
	`, taskID, ownerID, candidateID, models.TaskStatusInProgress, models.TaskStatusOpen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CompleteTx flips an in-progress task to completed inside the settlement
// transaction. Rows affected is 0 when the task is not in_progress or the
// caller is not the owner.
func (r *TaskRepo) CompleteTx(ctx context.Context, tx pgx.Tx, taskID, ownerID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND status = $4 AND helper_id IS NOT NULL
	`, taskID, ownerID, models.TaskStatusCompleted, models.TaskStatusInProgress)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteOpen removes a task, owner-only and only while still open.
func (r *TaskRepo) DeleteOpen(ctx context.Context, taskID, ownerID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM tasks WHERE id = $1 AND owner_id = $2 AND status = $3
	`, taskID, ownerID, models.TaskStatusOpen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepo) UpdateDescription(ctx context.Context, taskID, ownerID uuid.UUID, description string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET description = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND status = $4
	`, taskID, ownerID, description, models.TaskStatusOpen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepo) UpdateImageURL(ctx context.Context, taskID, ownerID uuid.UUID, imageURL string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET image_url = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND status = $4
	`, taskID, ownerID, imageURL, models.TaskStatusOpen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateExpectedMinutes recomputes credit_value with the fixed ratio. The
// status = open condition is what makes credit_value immutable once assigned.
func (r *TaskRepo) UpdateExpectedMinutes(ctx context.Context, taskID, ownerID uuid.UUID, minutes, creditValue int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET expected_minutes = $3, credit_value = $4, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND status = $5
	`, taskID, ownerID, minutes, creditValue, models.TaskStatusOpen)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepo) ListOpen(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC
	`, models.TaskStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE owner_id = $1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TaskRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

func (r *TaskRepo) CountCompletedByHelper(ctx context.Context, helperID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM tasks WHERE helper_id = $1 AND status = $2
	`, helperID, models.TaskStatusCompleted).Scan(&n)
	return n, err
}
