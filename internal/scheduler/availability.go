package scheduler

import (
	"context"
	"time"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

// DefaultMaxPeriodsPerDay caps a teacher with no explicit limit.
const DefaultMaxPeriodsPerDay = 6

// DateLayout is the canonical calendar-date key.
const DateLayout = "2006-01-02"

// DateKey formats a date as yyyy-mm-dd.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// TeacherAvailability describes one teacher for the dates covered by a snapshot.
type TeacherAvailability struct {
	TeacherID         string
	IsAvailable       bool
	OnVacation        bool
	VacationDates     map[string]struct{}
	MaxPeriodsPerDay  int
	PreferredSubjects []string

	blockedByDate    map[string]map[int]struct{}
	blockedByWeekday map[time.Weekday]map[int]struct{}
}

func newTeacherAvailability(teacherID string, maxPeriods int) *TeacherAvailability {
	return &TeacherAvailability{
		TeacherID:        teacherID,
		IsAvailable:      true,
		VacationDates:    make(map[string]struct{}),
		MaxPeriodsPerDay: maxPeriods,
		blockedByDate:    make(map[string]map[int]struct{}),
		blockedByWeekday: make(map[time.Weekday]map[int]struct{}),
	}
}

// AddVacation marks every date in [start, end] as vacation.
func (t *TeacherAvailability) AddVacation(start, end time.Time) {
	for day := truncateDay(start); !day.After(truncateDay(end)); day = day.AddDate(0, 0, 1) {
		t.VacationDates[DateKey(day)] = struct{}{}
	}
	t.OnVacation = len(t.VacationDates) > 0
}

// BlockDate blocks a slot on a single date.
func (t *TeacherAvailability) BlockDate(date time.Time, slotID int) {
	key := DateKey(date)
	if t.blockedByDate[key] == nil {
		t.blockedByDate[key] = make(map[int]struct{})
	}
	t.blockedByDate[key][slotID] = struct{}{}
}

// BlockWeekday blocks a slot on every occurrence of the weekday.
func (t *TeacherAvailability) BlockWeekday(day time.Weekday, slotID int) {
	if t.blockedByWeekday[day] == nil {
		t.blockedByWeekday[day] = make(map[int]struct{})
	}
	t.blockedByWeekday[day][slotID] = struct{}{}
}

func (t *TeacherAvailability) onVacation(date time.Time) bool {
	_, ok := t.VacationDates[DateKey(date)]
	return ok
}

func (t *TeacherAvailability) slotBlocked(date time.Time, slotID int) bool {
	if slots, ok := t.blockedByDate[DateKey(date)]; ok {
		if _, blocked := slots[slotID]; blocked {
			return true
		}
	}
	if slots, ok := t.blockedByWeekday[date.Weekday()]; ok {
		if _, blocked := slots[slotID]; blocked {
			return true
		}
	}
	return false
}

// AvailabilitySnapshot is the per-run registry. It is populated by an AvailabilitySource and read-only afterwards.
type AvailabilitySnapshot struct {
	defaultMax int
	entries    map[string]*TeacherAvailability
}

// NewAvailabilitySnapshot creates an empty snapshot with the given default cap.
func NewAvailabilitySnapshot(defaultMax int) *AvailabilitySnapshot {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxPeriodsPerDay
	}
	return &AvailabilitySnapshot{defaultMax: defaultMax, entries: make(map[string]*TeacherAvailability)}
}

// Entry returns the mutable entry for a teacher, creating it when absent. Only sources call this.
func (s *AvailabilitySnapshot) Entry(teacherID string) *TeacherAvailability {
	entry, ok := s.entries[teacherID]
	if !ok {
		entry = newTeacherAvailability(teacherID, s.defaultMax)
		s.entries[teacherID] = entry
	}
	return entry
}

// Lookup returns the entry for a teacher, if registered.
func (s *AvailabilitySnapshot) Lookup(teacherID string) (*TeacherAvailability, bool) {
	if s == nil {
		return nil, false
	}
	entry, ok := s.entries[teacherID]
	return entry, ok
}

// GenerallyAvailable reports the date-independent availability flag.
func (s *AvailabilitySnapshot) GenerallyAvailable(teacherID string) bool {
	entry, ok := s.Lookup(teacherID)
	if !ok {
		return true
	}
	return entry.IsAvailable
}

// IsAvailable reports whether the teacher works at all on the date.
func (s *AvailabilitySnapshot) IsAvailable(teacherID string, date time.Time) bool {
	entry, ok := s.Lookup(teacherID)
	if !ok {
		return true
	}
	return entry.IsAvailable && !entry.onVacation(date)
}

// OnVacation reports whether the date falls in the teacher's vacation set.
func (s *AvailabilitySnapshot) OnVacation(teacherID string, date time.Time) bool {
	entry, ok := s.Lookup(teacherID)
	if !ok {
		return false
	}
	return entry.onVacation(date)
}

// SlotBlocked reports whether a specific slot is unavailable for the teacher on the date.
func (s *AvailabilitySnapshot) SlotBlocked(teacherID string, date time.Time, slotID int) bool {
	entry, ok := s.Lookup(teacherID)
	if !ok {
		return false
	}
	return entry.slotBlocked(date, slotID)
}

// MaxPeriods returns the daily period cap for the teacher.
func (s *AvailabilitySnapshot) MaxPeriods(teacherID string) int {
	entry, ok := s.Lookup(teacherID)
	if !ok || entry.MaxPeriodsPerDay <= 0 {
		if s == nil {
			return DefaultMaxPeriodsPerDay
		}
		return s.defaultMax
	}
	return entry.MaxPeriodsPerDay
}

// Subject returns the teacher's specialization as recorded in the snapshot.
func (s *AvailabilitySnapshot) Subject(teacherID string) string {
	entry, ok := s.Lookup(teacherID)
	if !ok || len(entry.PreferredSubjects) == 0 {
		return ""
	}
	return entry.PreferredSubjects[0]
}

// AvailabilitySource produces a snapshot covering [from, to] for the given teachers.
type AvailabilitySource interface {
	Load(ctx context.Context, teachers []models.Teacher, from, to time.Time) (*AvailabilitySnapshot, error)
}

// StaticAvailabilitySource registers every teacher as fully available with their own subject.
type StaticAvailabilitySource struct {
	DefaultMaxPeriods int
}

// Load implements AvailabilitySource.
func (s StaticAvailabilitySource) Load(_ context.Context, teachers []models.Teacher, _, _ time.Time) (*AvailabilitySnapshot, error) {
	return SeedSnapshot(teachers, s.DefaultMaxPeriods), nil
}

// SeedSnapshot registers each teacher with its subject and active flag.
func SeedSnapshot(teachers []models.Teacher, defaultMax int) *AvailabilitySnapshot {
	snapshot := NewAvailabilitySnapshot(defaultMax)
	for _, teacher := range teachers {
		entry := snapshot.Entry(teacher.ID)
		entry.IsAvailable = teacher.Active
		entry.PreferredSubjects = []string{teacher.Subject}
	}
	return snapshot
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
