package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

// TeacherLeaveRepository persists approved teacher absences.
type TeacherLeaveRepository struct {
	db *sqlx.DB
}

// NewTeacherLeaveRepository constructs the repository.
func NewTeacherLeaveRepository(db *sqlx.DB) *TeacherLeaveRepository {
	return &TeacherLeaveRepository{db: db}
}

// ListOverlapping returns leaves intersecting [from, to]. An empty teacherIDs list means all teachers.
func (r *TeacherLeaveRepository) ListOverlapping(ctx context.Context, from, to time.Time, teacherIDs []string) ([]models.TeacherLeave, error) {
	query := `SELECT id, teacher_id, start_date, end_date, COALESCE(reason, '') AS reason, created_at
FROM teacher_leaves WHERE start_date <= $2 AND end_date >= $1`
	args := []interface{}{from, to}
	if len(teacherIDs) > 0 {
		query += " AND teacher_id = ANY($3)"
		args = append(args, pq.Array(teacherIDs))
	}
	query += " ORDER BY teacher_id ASC, start_date ASC"

	var leaves []models.TeacherLeave
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping teacher leaves: %w", err)
	}
	return leaves, nil
}

// Create records a leave.
func (r *TeacherLeaveRepository) Create(ctx context.Context, leave *models.TeacherLeave) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_leaves (id, teacher_id, start_date, end_date, reason, created_at)
VALUES (:id, :teacher_id, :start_date, :end_date, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create teacher leave: %w", err)
	}
	return nil
}
