package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
)

type teacherDirectory interface {
	ListForScheduling(ctx context.Context) ([]models.Teacher, error)
}

type classRoster interface {
	ListSections(ctx context.Context) ([]models.ClassSection, error)
}

type dailyScheduleStore interface {
	ReplaceDay(ctx context.Context, exec sqlx.ExtContext, date time.Time, rows []models.DailySchedule) error
	ListByDate(ctx context.Context, date time.Time) ([]models.DailySchedule, error)
	ListByTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]models.DailySchedule, error)
	SubstitutionStats(ctx context.Context, from, to time.Time) ([]models.SubstitutionStat, error)
	UpdateStatus(ctx context.Context, date time.Time, status models.ScheduleStatus) (int64, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DailyScheduleConfig tunes generation.
type DailyScheduleConfig struct {
	MaxConsecutivePeriods int
	Seed                  int64
	DefaultWeekDays       int
	MaxRangeDays          int
	CacheTTL              time.Duration
}

// DailyScheduleService loads the directory, runs the scheduling engine and stores day schedules.
type DailyScheduleService struct {
	teachers     teacherDirectory
	classes      classRoster
	store        dailyScheduleStore
	tx           txProvider
	availability scheduler.AvailabilitySource
	grid         scheduler.TimeGrid
	graph        scheduler.AffinityGraph
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          DailyScheduleConfig
}

// NewDailyScheduleService wires the service. A nil availability source treats every active teacher as available.
func NewDailyScheduleService(
	teachers teacherDirectory,
	classes classRoster,
	store dailyScheduleStore,
	tx txProvider,
	availability scheduler.AvailabilitySource,
	grid scheduler.TimeGrid,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DailyScheduleConfig,
) *DailyScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if availability == nil {
		availability = scheduler.StaticAvailabilitySource{}
	}
	if grid.Len() == 0 {
		grid = scheduler.DefaultTimeGrid()
	}
	if cfg.DefaultWeekDays <= 0 {
		cfg.DefaultWeekDays = 7
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 31
	}
	return &DailyScheduleService{
		teachers:     teachers,
		classes:      classes,
		store:        store,
		tx:           tx,
		availability: availability,
		grid:         grid,
		graph:        scheduler.DefaultAffinityGraph(),
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Grid exposes the time grid used for generation.
func (s *DailyScheduleService) Grid() scheduler.TimeGrid {
	return s.grid
}

// GenerateDay schedules one date and stores it, replacing any previous rows for the date.
func (s *DailyScheduleService) GenerateDay(ctx context.Context, req dto.GenerateDayRequest) (*dto.DayResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate day payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() { s.metrics.ObserveGeneration("day", time.Since(started)) }()

	in, err := s.prepare(ctx, date, date)
	if err != nil {
		return nil, err
	}
	day := s.newEngine().GenerateDay(in, date)
	s.metrics.RecordDay(day.Summary())

	if err := s.StoreDay(ctx, day); err != nil {
		return nil, err
	}
	result := dayResult(day, dto.DayStatusStored, nil)
	return &result, nil
}

// GenerateWeek schedules the working days of [startDate, startDate+days). Without Atomic
// each date is stored in its own transaction and a failed date does not stop the rest.
// A cancelled non-atomic run returns the dates it reached together with the error.
func (s *DailyScheduleService) GenerateWeek(ctx context.Context, req dto.GenerateWeekRequest) (*dto.WeekResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate week payload")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	days := req.Days
	if days == 0 {
		days = s.cfg.DefaultWeekDays
	}
	if days > s.cfg.MaxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must not exceed %d", s.cfg.MaxRangeDays))
	}
	started := time.Now()
	defer func() { s.metrics.ObserveGeneration("week", time.Since(started)) }()

	result := &dto.WeekResult{StartDate: req.StartDate, Atomic: req.Atomic}
	if req.Atomic {
		generated, err := s.generateAtomic(ctx, start, days)
		if err != nil {
			return nil, err
		}
		for _, day := range generated {
			result.Days = append(result.Days, dayResult(day, dto.DayStatusStored, nil))
		}
		result.Stats = scheduler.Summarize(generated)
		return result, nil
	}

	var stored []*scheduler.DaySchedule
	err = s.GenerateRange(ctx, start, days, func(day *scheduler.DaySchedule, storeErr error) {
		if storeErr != nil {
			result.Days = append(result.Days, dayResult(day, dto.DayStatusFailed, storeErr))
			return
		}
		stored = append(stored, day)
		result.Days = append(result.Days, dayResult(day, dto.DayStatusStored, nil))
	})
	if err != nil {
		if IsCancelled(err) {
			// committed dates stay stored, so the caller still gets them
			result.Stats = scheduler.Summarize(stored)
			result.Cancelled = true
			return result, appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, "generation cancelled")
		}
		return nil, err
	}
	result.Stats = scheduler.Summarize(stored)
	return result, nil
}

// DayCallback observes each generated day together with the error of storing it.
type DayCallback func(day *scheduler.DaySchedule, storeErr error)

// GenerateRange generates and stores working days one at a time, reporting each through onDay.
// Storage failures are reported, not returned. Cancellation is observed between days and
// returned as the context error.
func (s *DailyScheduleService) GenerateRange(ctx context.Context, start time.Time, days int, onDay DayCallback) error {
	in, err := s.prepare(ctx, start, start.AddDate(0, 0, days-1))
	if err != nil {
		return err
	}
	return s.newEngine().Each(ctx, in, start, days, func(day *scheduler.DaySchedule) error {
		s.metrics.RecordDay(day.Summary())
		storeErr := s.StoreDay(ctx, day)
		if storeErr != nil {
			s.logger.Error("day schedule not stored",
				zap.String("date", day.Key()),
				zap.Error(storeErr),
			)
		}
		if onDay != nil {
			onDay(day, storeErr)
		}
		return nil
	})
}

func (s *DailyScheduleService) generateAtomic(ctx context.Context, start time.Time, days int) ([]*scheduler.DaySchedule, error) {
	in, err := s.prepare(ctx, start, start.AddDate(0, 0, days-1))
	if err != nil {
		return nil, err
	}
	generated, err := s.newEngine().GenerateWeek(ctx, in, start, days)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, "generation cancelled")
	}
	for _, day := range generated {
		s.metrics.RecordDay(day.Summary())
	}
	if err := s.StoreBatch(ctx, generated); err != nil {
		return nil, err
	}
	return generated, nil
}

// StoreDay replaces the stored rows of one date inside a single transaction.
func (s *DailyScheduleService) StoreDay(ctx context.Context, day *scheduler.DaySchedule) error {
	return s.StoreBatch(ctx, []*scheduler.DaySchedule{day})
}

// StoreBatch replaces the stored rows of several dates inside one transaction. Either every
// date is written or none is.
func (s *DailyScheduleService) StoreBatch(ctx context.Context, days []*scheduler.DaySchedule) (err error) {
	if len(days) == 0 {
		return nil
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		s.metrics.RecordPersistFailure()
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			for range days {
				s.metrics.RecordPersistFailure()
			}
		}
	}()

	keys := make([]string, 0, len(days))
	for _, day := range days {
		if err = s.store.ReplaceDay(ctx, tx, day.Date, RowsForDay(day)); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, fmt.Sprintf("failed to store schedule for %s", day.Key()))
			return err
		}
		keys = append(keys, day.Key())
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to commit schedule transaction")
		return err
	}
	if cacheErr := s.cache.InvalidateDates(ctx, keys...); cacheErr != nil {
		s.logger.Warn("stale schedule cache", zap.Strings("dates", keys), zap.Error(cacheErr))
	}
	return nil
}

// DaySchedule returns the stored rows of a date in time order.
func (s *DailyScheduleService) DaySchedule(ctx context.Context, rawDate string) ([]models.DailySchedule, error) {
	rows, _, err := s.DayScheduleCached(ctx, rawDate)
	return rows, err
}

// DayScheduleCached is DaySchedule that also reports whether the rows came from the cache.
func (s *DailyScheduleService) DayScheduleCached(ctx context.Context, rawDate string) ([]models.DailySchedule, bool, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, false, err
	}
	key := DailyScheduleCacheKey(rawDate)
	var cached []models.DailySchedule
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	started := time.Now()
	rows, err := s.store.ListByDate(ctx, date)
	s.metrics.ObserveDBQuery("daily_schedule_by_date", time.Since(started))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily schedule")
	}
	if len(rows) == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no schedule stored for %s", rawDate))
	}
	_ = s.cache.Set(ctx, key, rows, s.cfg.CacheTTL)
	return rows, false, nil
}

// TeacherSchedule returns what a teacher teaches between two dates inclusive.
func (s *DailyScheduleService) TeacherSchedule(ctx context.Context, query dto.TeacherScheduleQuery) ([]models.DailySchedule, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher schedule query")
	}
	from, to, err := parseRange(query.From, query.To, s.cfg.MaxRangeDays)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListByTeacher(ctx, query.TeacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return rows, nil
}

// UpdateDayStatus marks the stored rows of a date as scheduled, completed or cancelled.
// Cancelled rows drop out of the substitution stats.
func (s *DailyScheduleService) UpdateDayStatus(ctx context.Context, rawDate string, req dto.UpdateDayStatusRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return 0, err
	}
	affected, err := s.store.UpdateStatus(ctx, date, models.ScheduleStatus(req.Status))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
	}
	if affected == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no schedule stored for %s", rawDate))
	}
	if cacheErr := s.cache.InvalidateDates(ctx, rawDate); cacheErr != nil {
		s.logger.Warn("stale schedule cache", zap.String("date", rawDate), zap.Error(cacheErr))
	}
	s.logger.Info("schedule status updated",
		zap.String("date", rawDate),
		zap.String("status", req.Status),
		zap.Int64("rows", affected),
	)
	return affected, nil
}

// Stats aggregates stored substitution counts per date.
func (s *DailyScheduleService) Stats(ctx context.Context, query dto.StatsQuery) (*dto.StatsResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stats query")
	}
	from, to, err := parseRange(query.From, query.To, 0)
	if err != nil {
		return nil, err
	}
	key := ScheduleStatsCacheKey(query.From, query.To)
	var cached dto.StatsResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	started := time.Now()
	days, err := s.store.SubstitutionStats(ctx, from, to)
	s.metrics.ObserveDBQuery("substitution_stats", time.Since(started))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution stats")
	}
	resp := &dto.StatsResponse{From: query.From, To: query.To, Days: days}
	for _, day := range days {
		resp.Totals.Days++
		resp.Totals.Scheduled += day.Scheduled
		resp.Totals.Substitutions += day.Substitutions
	}
	if resp.Totals.Scheduled > 0 {
		resp.Totals.SubstitutionRate = float64(resp.Totals.Substitutions) / float64(resp.Totals.Scheduled)
	}
	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	return resp, nil
}

func (s *DailyScheduleService) prepare(ctx context.Context, from, to time.Time) (scheduler.Input, error) {
	var (
		teachers []models.Teacher
		sections []models.ClassSection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		started := time.Now()
		var err error
		teachers, err = s.teachers.ListForScheduling(gctx)
		s.metrics.ObserveDBQuery("teacher_directory", time.Since(started))
		return err
	})
	g.Go(func() error {
		started := time.Now()
		var err error
		sections, err = s.classes.ListSections(gctx)
		s.metrics.ObserveDBQuery("class_roster", time.Since(started))
		return err
	})
	if err := g.Wait(); err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers and classes")
	}

	snapshot, err := s.availability.Load(ctx, teachers, from, to)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher availability")
	}
	return scheduler.Input{
		Grid:         s.grid,
		Teachers:     teachers,
		Sections:     sections,
		Availability: snapshot,
		Pools:        scheduler.BuildSubstitutePools(teachers, snapshot, s.graph),
	}, nil
}

// newEngine returns a fresh engine per invocation so concurrent requests never share one.
func (s *DailyScheduleService) newEngine() *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		MaxConsecutivePeriods: s.cfg.MaxConsecutivePeriods,
		Seed:                  s.cfg.Seed,
	}, s.logger.Named("scheduler"))
}

// RowsForDay converts the teaching assignments of a day into persisted rows.
func RowsForDay(day *scheduler.DaySchedule) []models.DailySchedule {
	assignments := day.Assignments()
	rows := make([]models.DailySchedule, 0, len(assignments))
	for _, a := range assignments {
		row := models.DailySchedule{
			ScheduleDate:  day.Date,
			TimeSlotID:    a.Slot.ID,
			PeriodNumber:  a.Slot.Period,
			StartTime:     a.Slot.Start,
			EndTime:       a.Slot.End,
			ClassID:       a.SectionID,
			TeacherID:     a.TeacherID,
			IsSubstitute:  a.IsSubstitute,
			Subject:       a.Subject,
			RoomNumber:    fmt.Sprintf("Room %d-%d", a.Slot.Period, a.Slot.ID),
			EnrolledCount: a.EnrolledCount,
			Status:        models.ScheduleStatusScheduled,
		}
		if a.IsSubstitute {
			original := a.OriginalTeacherID
			row.OriginalTeacherID = &original
		}
		rows = append(rows, row)
	}
	return rows
}

func dayResult(day *scheduler.DaySchedule, status string, err error) dto.DayResult {
	result := dto.DayResult{
		Date:        day.Key(),
		Status:      status,
		Summary:     day.Summary(),
		Unscheduled: day.Unscheduled,
	}
	if err != nil {
		result.Error = appErrors.FromError(err).Message
		return result
	}
	result.Entries = day.Entries()
	return result
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse(scheduler.DateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
	}
	return date, nil
}

func parseRange(rawFrom, rawTo string, maxDays int) (time.Time, time.Time, error) {
	from, err := parseDate(rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if maxDays > 0 && to.Sub(from) >= time.Duration(maxDays)*24*time.Hour {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range must not exceed %d days", maxDays))
	}
	return from, to, nil
}

// IsCancelled reports whether err stems from a cancelled generation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
