package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpwall/backend/internal/models"
)

type ApplicantRepo struct {
	pool *pgxpool.Pool
}

func NewApplicantRepo(pool *pgxpool.Pool) *ApplicantRepo {
	return &ApplicantRepo{pool: pool}
}

// Add appends a candidate to the task's applicant list. The (task_id,
// candidate_id) primary key makes repeat applications a unique violation,
// which the caller maps to its already-applied error.
func (r *ApplicantRepo) Add(ctx context.Context, taskID, candidateID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO task_applicants (task_id, candidate_id, position)
		VALUES ($1, $2, (SELECT coalesce(max(position), 0) + 1 FROM task_applicants WHERE task_id = $1))
	`, taskID, candidateID)
	return err
}

func (r *ApplicantRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Applicant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT task_id, candidate_id, position, created_at
		FROM task_applicants WHERE task_id = $1 ORDER BY position
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Applicant
	for rows.Next() {
		var a models.Applicant
		if err := rows.Scan(&a.TaskID, &a.CandidateID, &a.Position, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

func (r *ApplicantRepo) Exists(ctx context.Context, taskID, candidateID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM task_applicants WHERE task_id = $1 AND candidate_id = $2)
	`, taskID, candidateID).Scan(&exists)
	return exists, err
}
