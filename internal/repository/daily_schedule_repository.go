package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

const dailyScheduleColumns = `id, schedule_date, time_slot_id, period_number, start_time, end_time, class_id, teacher_id,
	is_substitute, original_teacher_id, subject, room_number, enrolled_count, status, created_at`

// DailyScheduleRepository persists generated day schedules.
type DailyScheduleRepository struct {
	db *sqlx.DB
}

// NewDailyScheduleRepository builds the repository.
func NewDailyScheduleRepository(db *sqlx.DB) *DailyScheduleRepository {
	return &DailyScheduleRepository{db: db}
}

func (r *DailyScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceDay removes every row stored for the date and inserts rows in their place.
// Callers pass their transaction so the swap is atomic.
func (r *DailyScheduleRepository) ReplaceDay(ctx context.Context, exec sqlx.ExtContext, date time.Time, rows []models.DailySchedule) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM daily_schedules WHERE schedule_date = $1`, date); err != nil {
		return fmt.Errorf("clear daily schedule %s: %w", date.Format("2006-01-02"), err)
	}

	const query = `
INSERT INTO daily_schedules (id, schedule_date, time_slot_id, period_number, start_time, end_time, class_id, teacher_id,
	is_substitute, original_teacher_id, subject, room_number, enrolled_count, status, created_at)
VALUES (:id, :schedule_date, :time_slot_id, :period_number, :start_time, :end_time, :class_id, :teacher_id,
	:is_substitute, :original_teacher_id, :subject, :room_number, :enrolled_count, :status, :created_at)`

	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.Status == "" {
			row.Status = models.ScheduleStatusScheduled
		}
		row.ScheduleDate = date
		if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
			return fmt.Errorf("insert daily schedule row: %w", err)
		}
	}
	return nil
}

// ListByDate returns the rows of a date in time order.
func (r *DailyScheduleRepository) ListByDate(ctx context.Context, date time.Time) ([]models.DailySchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_schedules WHERE schedule_date = $1 ORDER BY start_time ASC, class_id ASC`, dailyScheduleColumns)
	var rows []models.DailySchedule
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("list daily schedule: %w", err)
	}
	return rows, nil
}

// ListByTeacher returns the rows a teacher actually teaches between from and to inclusive.
func (r *DailyScheduleRepository) ListByTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.DailySchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_schedules
WHERE teacher_id = $1 AND schedule_date BETWEEN $2 AND $3
ORDER BY schedule_date ASC, start_time ASC`, dailyScheduleColumns)
	var rows []models.DailySchedule
	if err := r.db.SelectContext(ctx, &rows, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list teacher daily schedule: %w", err)
	}
	return rows, nil
}

// SubstitutionStats aggregates scheduled and substituted rows per date.
func (r *DailyScheduleRepository) SubstitutionStats(ctx context.Context, from, to time.Time) ([]models.SubstitutionStat, error) {
	const query = `SELECT schedule_date, COUNT(*) AS scheduled, COUNT(*) FILTER (WHERE is_substitute) AS substitutions
FROM daily_schedules
WHERE schedule_date BETWEEN $1 AND $2 AND status <> 'cancelled'
GROUP BY schedule_date
ORDER BY schedule_date ASC`
	var stats []models.SubstitutionStat
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, fmt.Errorf("substitution stats: %w", err)
	}
	return stats, nil
}

// UpdateStatus moves every row of a date to the given status.
func (r *DailyScheduleRepository) UpdateStatus(ctx context.Context, date time.Time, status models.ScheduleStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE daily_schedules SET status = $2 WHERE schedule_date = $1`, date, status)
	if err != nil {
		return 0, fmt.Errorf("update daily schedule status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update daily schedule status: %w", err)
	}
	return affected, nil
}
