package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
)

type teacherLeaveLister interface {
	ListOverlapping(ctx context.Context, from, to time.Time, teacherIDs []string) ([]models.TeacherLeave, error)
}

type teacherPreferenceLister interface {
	ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.TeacherPreference, error)
}

var weekdayNames = map[string]time.Weekday{
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
	"SUNDAY":    time.Sunday,
}

// LeaveAvailabilitySource builds availability from stored leaves and teacher preferences.
// Inactive teachers are generally unavailable; leave days become vacation dates; a positive
// max_load_per_day overrides the default cap; unavailable windows block the matching slots
// on every occurrence of their weekday.
type LeaveAvailabilitySource struct {
	leaves     teacherLeaveLister
	prefs      teacherPreferenceLister
	grid       scheduler.TimeGrid
	defaultMax int
	logger     *zap.Logger
}

// NewLeaveAvailabilitySource wires the source. prefs may be nil.
func NewLeaveAvailabilitySource(leaves teacherLeaveLister, prefs teacherPreferenceLister, grid scheduler.TimeGrid, defaultMax int, logger *zap.Logger) *LeaveAvailabilitySource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveAvailabilitySource{leaves: leaves, prefs: prefs, grid: grid, defaultMax: defaultMax, logger: logger}
}

// Load implements scheduler.AvailabilitySource.
func (s *LeaveAvailabilitySource) Load(ctx context.Context, teachers []models.Teacher, from, to time.Time) (*scheduler.AvailabilitySnapshot, error) {
	snapshot := scheduler.SeedSnapshot(teachers, s.defaultMax)
	if len(teachers) == 0 {
		return snapshot, nil
	}
	ids := make([]string, 0, len(teachers))
	for _, teacher := range teachers {
		ids = append(ids, teacher.ID)
	}

	var (
		leaves []models.TeacherLeave
		prefs  []models.TeacherPreference
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.leaves != nil {
		g.Go(func() error {
			var err error
			leaves, err = s.leaves.ListOverlapping(gctx, from, to, ids)
			if err != nil {
				return fmt.Errorf("load teacher leaves: %w", err)
			}
			return nil
		})
	}
	if s.prefs != nil {
		g.Go(func() error {
			var err error
			prefs, err = s.prefs.ListByTeachers(gctx, ids)
			if err != nil {
				return fmt.Errorf("load teacher preferences: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, leave := range leaves {
		if _, ok := snapshot.Lookup(leave.TeacherID); !ok {
			continue
		}
		start, end := leave.StartDate, leave.EndDate
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		snapshot.Entry(leave.TeacherID).AddVacation(start, end)
	}

	for _, pref := range prefs {
		if _, ok := snapshot.Lookup(pref.TeacherID); !ok {
			continue
		}
		entry := snapshot.Entry(pref.TeacherID)
		if pref.MaxLoadPerDay > 0 {
			entry.MaxPeriodsPerDay = pref.MaxLoadPerDay
		}
		if err := s.applyUnavailable(entry, pref); err != nil {
			s.logger.Warn("ignoring malformed unavailable windows",
				zap.String("teacher_id", pref.TeacherID),
				zap.Error(err),
			)
		}
	}
	return snapshot, nil
}

func (s *LeaveAvailabilitySource) applyUnavailable(entry *scheduler.TeacherAvailability, pref models.TeacherPreference) error {
	if len(pref.Unavailable) == 0 {
		return nil
	}
	var windows []models.TeacherUnavailableSlot
	if err := json.Unmarshal(pref.Unavailable, &windows); err != nil {
		return err
	}
	for _, window := range windows {
		day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(window.DayOfWeek))]
		if !ok {
			return fmt.Errorf("unknown day %q", window.DayOfWeek)
		}
		periods, err := parsePeriodRange(window.TimeRange)
		if err != nil {
			return err
		}
		for _, period := range periods {
			slot, ok := s.grid.SlotForPeriod(period)
			if !ok {
				continue
			}
			entry.BlockWeekday(day, slot.ID)
		}
	}
	return nil
}

// parsePeriodRange accepts "3" or "1-3".
func parsePeriodRange(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty period range")
	}
	startRaw, endRaw := raw, raw
	if strings.Contains(raw, "-") {
		parts := strings.SplitN(raw, "-", 2)
		startRaw, endRaw = parts[0], parts[1]
	}
	start, err := strconv.Atoi(strings.TrimSpace(startRaw))
	if err != nil {
		return nil, fmt.Errorf("invalid period range %q", raw)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endRaw))
	if err != nil {
		return nil, fmt.Errorf("invalid period range %q", raw)
	}
	if start < 1 || end < start {
		return nil, fmt.Errorf("invalid period range %q", raw)
	}
	periods := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		periods = append(periods, p)
	}
	return periods, nil
}
