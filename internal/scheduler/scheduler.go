package scheduler

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

// Config governs a Scheduler.
type Config struct {
	MaxConsecutivePeriods int
	// Seed fixes the section permutation. Zero draws a fresh seed from the clock.
	Seed int64
}

// Input is the immutable snapshot a run works from.
type Input struct {
	Grid         TimeGrid
	Teachers     []models.Teacher
	Sections     []models.ClassSection
	Availability *AvailabilitySnapshot
	Pools        SubstitutePools
}

// Scheduler greedily assigns sections to slots and teachers one day at a time.
// It is not safe for concurrent use.
type Scheduler struct {
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger
}

// New constructs a Scheduler.
func New(cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.MaxConsecutivePeriods <= 0 {
		cfg.MaxConsecutivePeriods = DefaultMaxConsecutivePeriods
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cfg: cfg, rng: rand.New(rand.NewSource(seed)), logger: logger}
}

// GenerateDay builds the schedule for one date.
func (s *Scheduler) GenerateDay(in Input, date time.Time) *DaySchedule {
	day := NewDaySchedule(date, in.Grid)
	for _, slot := range in.Grid.BreakSlots() {
		day.put(Assignment{Slot: slot, IsBreak: true})
	}

	eval := NewEvaluator(in.Grid, in.Availability, s.cfg.MaxConsecutivePeriods)
	directory := make(map[string]models.Teacher, len(in.Teachers))
	for _, teacher := range in.Teachers {
		directory[teacher.ID] = teacher
	}
	teaching := in.Grid.TeachingSlots()

	for _, section := range s.shuffle(in.Sections) {
		if _, ok := directory[section.TeacherID]; !ok {
			day.Unscheduled = append(day.Unscheduled, unscheduled(section, ReasonMissingTeacher))
			s.logger.Warn("section references unknown teacher",
				zap.String("date", day.Key()),
				zap.String("section_id", section.ID),
				zap.String("teacher_id", section.TeacherID),
			)
			continue
		}
		if s.placeRegular(day, eval, teaching, section) {
			continue
		}
		if s.placeSubstitute(day, eval, teaching, section, in, directory) {
			continue
		}
		day.Unscheduled = append(day.Unscheduled, unscheduled(section, ReasonNoTeacher))
	}

	summary := day.Summary()
	s.logger.Info("day schedule generated",
		zap.String("date", summary.Date),
		zap.Int("scheduled", summary.Scheduled),
		zap.Int("substitutions", summary.Substitutions),
		zap.Int("unscheduled", summary.Unscheduled),
	)
	return day
}

// Each generates consecutive working days from start, skipping weekends, and hands every
// completed day to finalize before moving on. Cancellation is honoured between days only.
func (s *Scheduler) Each(ctx context.Context, in Input, start time.Time, days int, finalize func(*DaySchedule) error) error {
	for _, date := range WorkingDays(start, days) {
		if err := ctx.Err(); err != nil {
			return err
		}
		day := s.GenerateDay(in, date)
		if finalize != nil {
			if err := finalize(day); err != nil {
				return err
			}
		}
	}
	return nil
}

// GenerateWeek returns the day schedules of the working days in [start, start+days).
func (s *Scheduler) GenerateWeek(ctx context.Context, in Input, start time.Time, days int) ([]*DaySchedule, error) {
	var out []*DaySchedule
	err := s.Each(ctx, in, start, days, func(day *DaySchedule) error {
		out = append(out, day)
		return nil
	})
	return out, err
}

func (s *Scheduler) shuffle(sections []models.ClassSection) []models.ClassSection {
	out := make([]models.ClassSection, 0, len(sections))
	for _, section := range sections {
		if section.Schedulable() {
			out = append(out, section)
		}
	}
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func (s *Scheduler) placeRegular(day *DaySchedule, eval *Evaluator, teaching []TimeSlot, section models.ClassSection) bool {
	for _, slot := range teaching {
		if day.Occupied(slot.ID) || !eval.Eligible(day, section.TeacherID, slot.ID) {
			continue
		}
		return day.put(newAssignment(slot, section, section.TeacherID, ""))
	}
	return false
}

func (s *Scheduler) placeSubstitute(day *DaySchedule, eval *Evaluator, teaching []TimeSlot, section models.ClassSection, in Input, directory map[string]models.Teacher) bool {
	candidates := append([]string(nil), in.Pools.For(section.TeacherID)...)
	if len(candidates) == 0 {
		return false
	}
	subjectMatch := func(id string) bool {
		teacher, ok := directory[id]
		if !ok {
			return false
		}
		return subjectOf(teacher, in.Availability) == section.Subject
	}
	workload := make(map[string]int, len(candidates))
	for _, id := range candidates {
		workload[id] = eval.DailyWorkload(day, id)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		mi, mj := subjectMatch(candidates[i]), subjectMatch(candidates[j])
		if mi != mj {
			return mi
		}
		return workload[candidates[i]] < workload[candidates[j]]
	})

	for _, candidate := range candidates {
		if candidate == section.TeacherID {
			continue
		}
		for _, slot := range teaching {
			if day.Occupied(slot.ID) || !eval.Eligible(day, candidate, slot.ID) {
				continue
			}
			s.logger.Debug("substitute assigned",
				zap.String("date", day.Key()),
				zap.String("section_id", section.ID),
				zap.String("teacher_id", candidate),
				zap.String("original_teacher_id", section.TeacherID),
				zap.Int("slot_id", slot.ID),
			)
			return day.put(newAssignment(slot, section, candidate, section.TeacherID))
		}
	}
	return false
}

func newAssignment(slot TimeSlot, section models.ClassSection, teacherID, originalTeacherID string) Assignment {
	return Assignment{
		Slot:              slot,
		SectionID:         section.ID,
		SectionName:       section.Name,
		Subject:           section.Subject,
		TeacherID:         teacherID,
		IsSubstitute:      originalTeacherID != "",
		OriginalTeacherID: originalTeacherID,
		EnrolledCount:     section.EnrolledCount,
	}
}

func unscheduled(section models.ClassSection, reason string) UnscheduledSection {
	return UnscheduledSection{
		SectionID:   section.ID,
		SectionName: section.Name,
		Subject:     section.Subject,
		TeacherID:   section.TeacherID,
		Reason:      reason,
	}
}

// WorkingDays lists the weekdays among the calendar days [start, start+days).
func WorkingDays(start time.Time, days int) []time.Time {
	var out []time.Time
	base := truncateDay(start)
	for i := 0; i < days; i++ {
		date := base.AddDate(0, 0, i)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		out = append(out, date)
	}
	return out
}
