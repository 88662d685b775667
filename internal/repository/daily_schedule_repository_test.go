package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scheduleDate = time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)

func TestDailyScheduleRepositoryReplaceDayInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyScheduleRepository(db)

	original := "T1"
	rows := []models.DailySchedule{
		{TimeSlotID: 1, PeriodNumber: 1, StartTime: "08:00", EndTime: "08:45", ClassID: "C1", TeacherID: "T1", Subject: "Mathematics", RoomNumber: "Room 1-1"},
		{TimeSlotID: 2, PeriodNumber: 2, StartTime: "08:45", EndTime: "09:30", ClassID: "C2", TeacherID: "T2", IsSubstitute: true, OriginalTeacherID: &original, Subject: "Mathematics", RoomNumber: "Room 2-2"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_schedules WHERE schedule_date = $1")).
		WithArgs(scheduleDate).
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("INSERT INTO daily_schedules").
		WithArgs(sqlmock.AnyArg(), scheduleDate, 1, 1, "08:00", "08:45", "C1", "T1", false, nil, "Mathematics", "Room 1-1", 0, "scheduled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO daily_schedules").
		WithArgs(sqlmock.AnyArg(), scheduleDate, 2, 2, "08:45", "09:30", "C2", "T2", true, "T1", "Mathematics", "Room 2-2", 0, "scheduled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceDay(context.Background(), tx, scheduleDate, rows))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, models.ScheduleStatusScheduled, rows[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyScheduleRepositoryReplaceDayInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyScheduleRepository(db)

	mock.ExpectExec("DELETE FROM daily_schedules").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO daily_schedules").WillReturnError(errors.New("unique violation"))

	err := repo.ReplaceDay(context.Background(), nil, scheduleDate, []models.DailySchedule{{TimeSlotID: 1, ClassID: "C1", TeacherID: "T1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert daily schedule row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyScheduleRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyScheduleRepository(db)

	columns := []string{"id", "schedule_date", "time_slot_id", "period_number", "start_time", "end_time", "class_id", "teacher_id",
		"is_substitute", "original_teacher_id", "subject", "room_number", "enrolled_count", "status", "created_at"}
	mock.ExpectQuery("(?s)SELECT .* FROM daily_schedules WHERE schedule_date = \\$1 ORDER BY start_time ASC").
		WithArgs(scheduleDate).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("r1", scheduleDate, 1, 1, "08:00", "08:45", "C1", "T1", false, nil, "Art", "Room 1-1", 20, "scheduled", time.Now()).
			AddRow("r2", scheduleDate, 2, 2, "08:45", "09:30", "C2", "T3", true, "T2", "Art", "Room 2-2", 18, "scheduled", time.Now()))

	rows, err := repo.ListByDate(context.Background(), scheduleDate)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].OriginalTeacherID)
	require.NotNil(t, rows[1].OriginalTeacherID)
	assert.Equal(t, "T2", *rows[1].OriginalTeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyScheduleRepositorySubstitutionStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyScheduleRepository(db)
	to := scheduleDate.AddDate(0, 0, 4)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE is_substitute) AS substitutions")).
		WithArgs(scheduleDate, to).
		WillReturnRows(sqlmock.NewRows([]string{"schedule_date", "scheduled", "substitutions"}).
			AddRow(scheduleDate, 40, 4).
			AddRow(scheduleDate.AddDate(0, 0, 1), 38, 0))

	stats, err := repo.SubstitutionStats(context.Background(), scheduleDate, to)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.InDelta(t, 0.1, stats[0].SubstitutionRate(), 1e-9)
	assert.Zero(t, stats[1].SubstitutionRate())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyScheduleRepositoryListByTeacherAndStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDailyScheduleRepository(db)
	to := scheduleDate.AddDate(0, 0, 6)

	mock.ExpectQuery("FROM daily_schedules\\s+WHERE teacher_id = \\$1 AND schedule_date BETWEEN \\$2 AND \\$3").
		WithArgs("T1", scheduleDate, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id"}).AddRow("r1", "T1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE daily_schedules SET status = $2 WHERE schedule_date = $1")).
		WithArgs(scheduleDate, "completed").
		WillReturnResult(sqlmock.NewResult(0, 12))

	rows, err := repo.ListByTeacher(context.Background(), "T1", scheduleDate, to)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	affected, err := repo.UpdateStatus(context.Background(), scheduleDate, models.ScheduleStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(12), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
