package scheduler

// DefaultMaxConsecutivePeriods bounds a back-to-back teaching run.
const DefaultMaxConsecutivePeriods = 3

// Evaluator answers placement predicates against a day that is still being built.
type Evaluator struct {
	grid           TimeGrid
	availability   *AvailabilitySnapshot
	maxConsecutive int
}

// NewEvaluator binds the predicates to a grid and availability snapshot.
func NewEvaluator(grid TimeGrid, availability *AvailabilitySnapshot, maxConsecutive int) *Evaluator {
	if maxConsecutive <= 0 {
		maxConsecutive = DefaultMaxConsecutivePeriods
	}
	return &Evaluator{grid: grid, availability: availability, maxConsecutive: maxConsecutive}
}

// Available fails on registry unavailability, vacation, blocked slot, an existing
// assignment in the slot, or a reached daily cap.
func (e *Evaluator) Available(day *DaySchedule, teacherID string, slotID int) bool {
	slot, ok := e.grid.Slot(slotID)
	if !ok || slot.IsBreak {
		return false
	}
	if !e.availability.IsAvailable(teacherID, day.Date) {
		return false
	}
	if e.availability.OnVacation(teacherID, day.Date) {
		return false
	}
	if e.availability.SlotBlocked(teacherID, day.Date, slotID) {
		return false
	}
	if day.TeacherAt(teacherID, slotID) {
		return false
	}
	return e.DailyWorkload(day, teacherID) < e.availability.MaxPeriods(teacherID)
}

// DailyWorkload counts the teacher's teaching assignments on the day.
func (e *Evaluator) DailyWorkload(day *DaySchedule, teacherID string) int {
	count := 0
	for _, a := range day.slots {
		if !a.IsBreak && a.TeacherID == teacherID {
			count++
		}
	}
	return count
}

// ConsecutiveRun returns the length of the teaching run the slot would join, itself included.
// The scan stops at the first break or at the first slot the teacher does not hold.
func (e *Evaluator) ConsecutiveRun(day *DaySchedule, teacherID string, slotID int) int {
	pos := e.grid.Position(slotID)
	if pos < 0 {
		return 0
	}
	run := 1
	for i := pos - 1; i >= 0; i-- {
		slot, _ := e.grid.At(i)
		if slot.IsBreak || !day.TeacherAt(teacherID, slot.ID) {
			break
		}
		run++
	}
	for i := pos + 1; i < e.grid.Len(); i++ {
		slot, _ := e.grid.At(i)
		if slot.IsBreak || !day.TeacherAt(teacherID, slot.ID) {
			break
		}
		run++
	}
	return run
}

// ExceedsConsecutive reports whether placing the slot would break the consecutive-period limit.
func (e *Evaluator) ExceedsConsecutive(day *DaySchedule, teacherID string, slotID int) bool {
	return e.ConsecutiveRun(day, teacherID, slotID) > e.maxConsecutive
}

// Eligible is true only when every predicate passes.
func (e *Evaluator) Eligible(day *DaySchedule, teacherID string, slotID int) bool {
	return e.Available(day, teacherID, slotID) && !e.ExceedsConsecutive(day, teacherID, slotID)
}

// MaxConsecutive exposes the configured run limit.
func (e *Evaluator) MaxConsecutive() int {
	return e.maxConsecutive
}
