package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
)

// 2025-09-29 is a Monday.
var testMonday = time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)

type teacherDirectoryStub struct {
	items []models.Teacher
	err   error
}

func (s teacherDirectoryStub) ListForScheduling(ctx context.Context) ([]models.Teacher, error) {
	return s.items, s.err
}

type classRosterStub struct {
	items []models.ClassSection
	err   error
}

func (s classRosterStub) ListSections(ctx context.Context) ([]models.ClassSection, error) {
	return s.items, s.err
}

type availabilityStub struct {
	vacations map[string]time.Time
}

func (s availabilityStub) Load(ctx context.Context, teachers []models.Teacher, from, to time.Time) (*scheduler.AvailabilitySnapshot, error) {
	snapshot := scheduler.SeedSnapshot(teachers, 0)
	for id, date := range s.vacations {
		snapshot.Entry(id).AddVacation(date, date)
	}
	return snapshot, nil
}

type dailyStoreStub struct {
	replaced map[string][]models.DailySchedule
	failOn   map[string]bool
	byDate   []models.DailySchedule
	stats    []models.SubstitutionStat
	readErr  error
	statuses map[string]models.ScheduleStatus
	// onReplace runs before a date is written.
	onReplace func(key string)
}

func newDailyStoreStub() *dailyStoreStub {
	return &dailyStoreStub{replaced: map[string][]models.DailySchedule{}, failOn: map[string]bool{}}
}

func (s *dailyStoreStub) ReplaceDay(ctx context.Context, exec sqlx.ExtContext, date time.Time, rows []models.DailySchedule) error {
	key := date.Format(scheduler.DateLayout)
	if s.onReplace != nil {
		s.onReplace(key)
	}
	if s.failOn[key] {
		return errors.New("disk full")
	}
	s.replaced[key] = rows
	return nil
}

func (s *dailyStoreStub) ListByDate(ctx context.Context, date time.Time) ([]models.DailySchedule, error) {
	return s.byDate, s.readErr
}

func (s *dailyStoreStub) ListByTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.DailySchedule, error) {
	var out []models.DailySchedule
	for _, row := range s.byDate {
		if row.TeacherID == teacherID {
			out = append(out, row)
		}
	}
	return out, s.readErr
}

func (s *dailyStoreStub) SubstitutionStats(ctx context.Context, from, to time.Time) ([]models.SubstitutionStat, error) {
	return s.stats, s.readErr
}

func (s *dailyStoreStub) UpdateStatus(ctx context.Context, date time.Time, status models.ScheduleStatus) (int64, error) {
	key := date.Format(scheduler.DateLayout)
	rows, ok := s.replaced[key]
	if !ok {
		return 0, s.readErr
	}
	if s.statuses == nil {
		s.statuses = map[string]models.ScheduleStatus{}
	}
	s.statuses[key] = status
	return int64(len(rows)), s.readErr
}

type scheduleTxMock struct {
	db *sqlx.DB
}

func (t *scheduleTxMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newScheduleTxMock(t *testing.T) (*scheduleTxMock, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &scheduleTxMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

type dailyFixture struct {
	service *DailyScheduleService
	store   *dailyStoreStub
	mock    sqlmock.Sqlmock
	metrics *MetricsService
}

func newDailyFixture(t *testing.T, vacations map[string]time.Time) dailyFixture {
	t.Helper()
	tx, mock := newScheduleTxMock(t)
	store := newDailyStoreStub()
	metrics := NewMetricsService()
	teachers := teacherDirectoryStub{items: []models.Teacher{
		{ID: "T1", FullName: "Ana", Subject: "Mathematics", Active: true},
		{ID: "T2", FullName: "Budi", Subject: "Mathematics", Active: true},
	}}
	classes := classRosterStub{items: []models.ClassSection{
		{ID: "C1", Name: "10A", Subject: "Mathematics", TeacherID: "T1", EnrolledCount: 30},
	}}
	svc := NewDailyScheduleService(teachers, classes, store, tx, availabilityStub{vacations: vacations},
		scheduler.DefaultTimeGrid(), nil, metrics, nil, zap.NewNop(),
		DailyScheduleConfig{Seed: 11, MaxRangeDays: 31})
	return dailyFixture{service: svc, store: store, mock: mock, metrics: metrics}
}

func TestDailyScheduleServiceGenerateDaySubstitutes(t *testing.T) {
	fx := newDailyFixture(t, map[string]time.Time{"T1": testMonday})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateDay(context.Background(), dto.GenerateDayRequest{Date: "2025-09-29"})
	require.NoError(t, err)

	assert.Equal(t, dto.DayStatusStored, result.Status)
	assert.Equal(t, 1, result.Summary.Scheduled)
	assert.Equal(t, 1, result.Summary.Substitutions)
	assert.Len(t, result.Entries, 4, "one assignment plus three break markers")

	rows := fx.store.replaced["2025-09-29"]
	require.Len(t, rows, 1)
	assert.Equal(t, "T2", rows[0].TeacherID)
	require.NotNil(t, rows[0].OriginalTeacherID)
	assert.Equal(t, "T1", *rows[0].OriginalTeacherID)
	assert.True(t, rows[0].IsSubstitute)
	assert.Equal(t, "Room 1-1", rows[0].RoomNumber)
	assert.Equal(t, "08:00", rows[0].StartTime)
	assert.Equal(t, 30, rows[0].EnrolledCount)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Equal(t, uint64(1), fx.metrics.Snapshot().DaysGenerated)
}

func TestDailyScheduleServiceGenerateDayPersistFailureRollsBack(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.store.failOn["2025-09-29"] = true
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.service.GenerateDay(context.Background(), dto.GenerateDayRequest{Date: "2025-09-29"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErr.Code)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Equal(t, uint64(1), fx.metrics.Snapshot().PersistFailures)
}

func TestDailyScheduleServiceGenerateDayValidation(t *testing.T) {
	fx := newDailyFixture(t, nil)

	_, err := fx.service.GenerateDay(context.Background(), dto.GenerateDayRequest{Date: "29/09/2025"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDailyScheduleServiceGenerateWeekContinuesPastFailedDay(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.store.failOn["2025-09-30"] = true
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()
	for i := 0; i < 3; i++ {
		fx.mock.ExpectBegin()
		fx.mock.ExpectCommit()
	}

	result, err := fx.service.GenerateWeek(context.Background(), dto.GenerateWeekRequest{StartDate: "2025-09-29"})
	require.NoError(t, err)

	require.Len(t, result.Days, 5, "weekend dates are skipped")
	assert.Equal(t, dto.DayStatusFailed, result.Days[1].Status)
	assert.NotEmpty(t, result.Days[1].Error)
	assert.Empty(t, result.Days[1].Entries)
	for _, i := range []int{0, 2, 3, 4} {
		assert.Equal(t, dto.DayStatusStored, result.Days[i].Status)
	}
	assert.Equal(t, 4, result.Stats.TotalDays)
	assert.Equal(t, 4, result.Stats.Scheduled)
	assert.Len(t, fx.store.replaced, 4)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestDailyScheduleServiceGenerateWeekAtomic(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.GenerateWeek(context.Background(), dto.GenerateWeekRequest{StartDate: "2025-09-29", Days: 3, Atomic: true})
	require.NoError(t, err)

	assert.True(t, result.Atomic)
	assert.Len(t, result.Days, 3)
	assert.Equal(t, 3, result.Stats.Scheduled)
	assert.Len(t, fx.store.replaced, 3)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestDailyScheduleServiceGenerateWeekAtomicRollsBackEverything(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.store.failOn["2025-10-01"] = true
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.service.GenerateWeek(context.Background(), dto.GenerateWeekRequest{StartDate: "2025-09-29", Days: 5, Atomic: true})
	require.Error(t, err)

	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestDailyScheduleServiceGenerateWeekRejectsLongRange(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.service.cfg.MaxRangeDays = 5

	_, err := fx.service.GenerateWeek(context.Background(), dto.GenerateWeekRequest{StartDate: "2025-09-29", Days: 6})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDailyScheduleServiceGenerateRangeStopsWhenCancelled(t *testing.T) {
	fx := newDailyFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := 0
	err := fx.service.GenerateRange(ctx, testMonday, 5, func(*scheduler.DaySchedule, error) { called++ })
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, called)
}

func TestDailyScheduleServiceGenerateWeekCancelledReturnsStoredDays(t *testing.T) {
	fx := newDailyFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.store.failOn["2025-10-01"] = true
	fx.store.onReplace = func(key string) {
		if key == "2025-10-01" {
			cancel()
		}
	}
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	result, err := fx.service.GenerateWeek(ctx, dto.GenerateWeekRequest{StartDate: "2025-09-29", Days: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRunCancelled.Code, appErrors.FromError(err).Code)

	require.NotNil(t, result)
	assert.True(t, result.Cancelled)
	require.Len(t, result.Days, 3, "dates after the cancellation are not generated")
	assert.Equal(t, dto.DayStatusStored, result.Days[0].Status)
	assert.Equal(t, dto.DayStatusStored, result.Days[1].Status)
	assert.Equal(t, dto.DayStatusFailed, result.Days[2].Status)
	assert.Equal(t, 2, result.Stats.TotalDays)
	assert.Len(t, fx.store.replaced, 2)
}

func TestDailyScheduleServiceRegenerationIsIdempotent(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	first, err := fx.service.GenerateDay(context.Background(), dto.GenerateDayRequest{Date: "2025-09-29"})
	require.NoError(t, err)
	second, err := fx.service.GenerateDay(context.Background(), dto.GenerateDayRequest{Date: "2025-09-29"})
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Len(t, fx.store.replaced["2025-09-29"], 1)
}

func TestDailyScheduleServiceDirectoryFailure(t *testing.T) {
	tx, _ := newScheduleTxMock(t)
	svc := NewDailyScheduleService(teacherDirectoryStub{err: errors.New("db down")}, classRosterStub{}, newDailyStoreStub(), tx,
		nil, scheduler.TimeGrid{}, nil, nil, nil, nil, DailyScheduleConfig{})

	_, err := svc.GenerateDay(context.Background(), dto.GenerateDayRequest{Date: "2025-09-29"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestDailyScheduleServiceDaySchedule(t *testing.T) {
	fx := newDailyFixture(t, nil)

	_, err := fx.service.DaySchedule(context.Background(), "2025-09-29")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	fx.store.byDate = []models.DailySchedule{{ClassID: "C1", TeacherID: "T1", StartTime: "08:00"}}
	rows, err := fx.service.DaySchedule(context.Background(), "2025-09-29")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = fx.service.DaySchedule(context.Background(), "yesterday")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDailyScheduleServiceTeacherSchedule(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.store.byDate = []models.DailySchedule{{ClassID: "C1", TeacherID: "T1"}, {ClassID: "C2", TeacherID: "T2"}}

	rows, err := fx.service.TeacherSchedule(context.Background(), dto.TeacherScheduleQuery{TeacherID: "T2", From: "2025-09-29", To: "2025-10-03"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C2", rows[0].ClassID)

	_, err = fx.service.TeacherSchedule(context.Background(), dto.TeacherScheduleQuery{TeacherID: "T2", From: "2025-10-03", To: "2025-09-29"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDailyScheduleServiceStats(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.store.stats = []models.SubstitutionStat{
		{ScheduleDate: testMonday, Scheduled: 10, Substitutions: 2},
		{ScheduleDate: testMonday.AddDate(0, 0, 1), Scheduled: 10, Substitutions: 3},
	}

	resp, err := fx.service.Stats(context.Background(), dto.StatsQuery{From: "2025-09-29", To: "2025-09-30"})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Totals.Days)
	assert.Equal(t, 20, resp.Totals.Scheduled)
	assert.Equal(t, 5, resp.Totals.Substitutions)
	assert.InDelta(t, 0.25, resp.Totals.SubstitutionRate, 1e-9)
}

func TestRowsForDaySkipsBreaks(t *testing.T) {
	teachers := []models.Teacher{{ID: "T1", Subject: "Art", Active: true}}
	snapshot := scheduler.SeedSnapshot(teachers, 0)
	in := scheduler.Input{
		Grid:         scheduler.DefaultTimeGrid(),
		Teachers:     teachers,
		Sections:     []models.ClassSection{{ID: "C1", Subject: "Art", TeacherID: "T1", EnrolledCount: 5}},
		Availability: snapshot,
		Pools:        scheduler.BuildSubstitutePools(teachers, snapshot, scheduler.DefaultAffinityGraph()),
	}
	day := scheduler.New(scheduler.Config{Seed: 1}, nil).GenerateDay(in, testMonday)

	rows := RowsForDay(day)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsSubstitute)
	assert.Nil(t, rows[0].OriginalTeacherID)
	assert.Equal(t, models.ScheduleStatusScheduled, rows[0].Status)
	assert.Equal(t, 1, rows[0].PeriodNumber)
}

func TestDailyScheduleServiceUpdateDayStatus(t *testing.T) {
	fx := newDailyFixture(t, nil)
	fx.store.replaced["2025-09-29"] = []models.DailySchedule{{ClassID: "C1"}, {ClassID: "C2"}}

	affected, err := fx.service.UpdateDayStatus(context.Background(), "2025-09-29", dto.UpdateDayStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.Equal(t, models.ScheduleStatusCompleted, fx.store.statuses["2025-09-29"])

	_, err = fx.service.UpdateDayStatus(context.Background(), "2025-09-30", dto.UpdateDayStatusRequest{Status: "cancelled"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = fx.service.UpdateDayStatus(context.Background(), "2025-09-29", dto.UpdateDayStatusRequest{Status: "archived"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
