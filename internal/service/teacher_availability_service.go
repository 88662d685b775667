package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/dto"
	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/sma-daily-scheduler/pkg/errors"
)

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type teacherPreferenceStore interface {
	GetByTeacher(ctx context.Context, teacherID string) (*models.TeacherPreference, error)
	Upsert(ctx context.Context, pref *models.TeacherPreference) error
}

type teacherLeaveStore interface {
	teacherLeaveLister
	Create(ctx context.Context, leave *models.TeacherLeave) error
}

// TeacherAvailabilityService manages the inputs LeaveAvailabilitySource reads:
// per-teacher preferences and approved leaves.
type TeacherAvailabilityService struct {
	teachers     teacherFinder
	prefs        teacherPreferenceStore
	leaves       teacherLeaveStore
	grid         scheduler.TimeGrid
	maxRangeDays int
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewTeacherAvailabilityService builds the service. maxRangeDays bounds leave listings.
func NewTeacherAvailabilityService(teachers teacherFinder, prefs teacherPreferenceStore, leaves teacherLeaveStore, grid scheduler.TimeGrid, maxRangeDays int, validate *validator.Validate, logger *zap.Logger) *TeacherAvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherAvailabilityService{
		teachers:     teachers,
		prefs:        prefs,
		leaves:       leaves,
		grid:         grid,
		maxRangeDays: maxRangeDays,
		validator:    validate,
		logger:       logger,
	}
}

// Preferences returns stored preferences or the defaults.
func (s *TeacherAvailabilityService) Preferences(ctx context.Context, teacherID string) (*models.TeacherPreference, error) {
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	pref, err := s.prefs.GetByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.TeacherPreference{TeacherID: teacherID, Unavailable: types.JSONText("[]")}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher preferences")
	}
	return pref, nil
}

// UpsertPreferences stores preferences for a teacher. Windows are validated against the time grid
// so a malformed entry is rejected here rather than skipped at generation time.
func (s *TeacherAvailabilityService) UpsertPreferences(ctx context.Context, teacherID string, req dto.UpsertPreferenceRequest) (*models.TeacherPreference, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	if err := s.validateWindows(req.Unavailable); err != nil {
		return nil, err
	}
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	raw := types.JSONText("[]")
	if len(req.Unavailable) > 0 {
		encoded, err := json.Marshal(req.Unavailable)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unavailable payload")
		}
		raw = types.JSONText(encoded)
	}
	payload := &models.TeacherPreference{
		TeacherID:     teacherID,
		MaxLoadPerDay: req.MaxLoadPerDay,
		Unavailable:   raw,
	}

	existing, err := s.prefs.GetByTeacher(ctx, teacherID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher preferences")
	}
	if existing != nil {
		payload.ID = existing.ID
		payload.CreatedAt = existing.CreatedAt
	}
	if err := s.prefs.Upsert(ctx, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert teacher preferences")
	}
	s.logger.Info("teacher preferences stored",
		zap.String("teacher_id", teacherID),
		zap.Int("max_load_per_day", payload.MaxLoadPerDay),
		zap.Int("windows", len(req.Unavailable)),
	)
	return payload, nil
}

// CreateLeave records an approved absence for a teacher.
func (s *TeacherAvailabilityService) CreateLeave(ctx context.Context, teacherID string, req dto.CreateLeaveRequest) (*models.TeacherLeave, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	start, end, err := parseRange(req.StartDate, req.EndDate, 0)
	if err != nil {
		return nil, err
	}
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	leave := &models.TeacherLeave{
		TeacherID: teacherID,
		StartDate: start,
		EndDate:   end,
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher leave")
	}
	s.logger.Info("teacher leave recorded",
		zap.String("teacher_id", teacherID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)
	return leave, nil
}

// Leaves lists the leaves of a teacher that overlap the query range.
func (s *TeacherAvailabilityService) Leaves(ctx context.Context, teacherID string, query dto.LeaveQuery) ([]models.TeacherLeave, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave query")
	}
	from, to, err := parseRange(query.From, query.To, s.maxRangeDays)
	if err != nil {
		return nil, err
	}
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	leaves, err := s.leaves.ListOverlapping(ctx, from, to, []string{teacherID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher leaves")
	}
	if leaves == nil {
		leaves = []models.TeacherLeave{}
	}
	return leaves, nil
}

func (s *TeacherAvailabilityService) requireTeacher(ctx context.Context, teacherID string) error {
	if strings.TrimSpace(teacherID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}

func (s *TeacherAvailabilityService) validateWindows(windows []models.TeacherUnavailableSlot) error {
	for i, window := range windows {
		if _, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(window.DayOfWeek))]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unavailable[%d]: unknown day %q", i, window.DayOfWeek))
		}
		periods, err := parsePeriodRange(window.TimeRange)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unavailable[%d]: %s", i, err.Error()))
		}
		last := periods[len(periods)-1]
		if _, ok := s.grid.SlotForPeriod(last); !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unavailable[%d]: period %d is outside the day", i, last))
		}
	}
	return nil
}
