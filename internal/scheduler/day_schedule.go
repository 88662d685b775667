package scheduler

import (
	"sort"
	"time"
)

// Assignment is one placed entry of a day. Break markers carry only the slot.
type Assignment struct {
	Slot              TimeSlot `json:"slot"`
	IsBreak           bool     `json:"isBreak"`
	SectionID         string   `json:"sectionId,omitempty"`
	SectionName       string   `json:"sectionName,omitempty"`
	Subject           string   `json:"subject,omitempty"`
	TeacherID         string   `json:"teacherId,omitempty"`
	IsSubstitute      bool     `json:"isSubstitute"`
	OriginalTeacherID string   `json:"originalTeacherId,omitempty"`
	EnrolledCount     int      `json:"enrolledCount,omitempty"`
}

// Unscheduled reasons.
const (
	ReasonNoTeacher      = "no_teacher_available"
	ReasonMissingTeacher = "missing_teacher"
)

// UnscheduledSection records a section left out of a day and why.
type UnscheduledSection struct {
	SectionID   string `json:"sectionId"`
	SectionName string `json:"sectionName"`
	Subject     string `json:"subject"`
	TeacherID   string `json:"teacherId"`
	Reason      string `json:"reason"`
}

// DaySchedule maps each slot id of one date to at most one assignment.
type DaySchedule struct {
	Date        time.Time
	slots       map[int]Assignment
	placed      []int // teaching slot ids in placement order
	grid        TimeGrid
	Unscheduled []UnscheduledSection
}

// NewDaySchedule creates an empty day bound to a grid.
func NewDaySchedule(date time.Time, grid TimeGrid) *DaySchedule {
	return &DaySchedule{
		Date:  truncateDay(date),
		slots: make(map[int]Assignment, grid.Len()),
		grid:  grid,
	}
}

// Key returns the yyyy-mm-dd key of the day.
func (d *DaySchedule) Key() string {
	return DateKey(d.Date)
}

// Get returns the entry at a slot.
func (d *DaySchedule) Get(slotID int) (Assignment, bool) {
	a, ok := d.slots[slotID]
	return a, ok
}

// Occupied reports whether the slot already holds an entry.
func (d *DaySchedule) Occupied(slotID int) bool {
	_, ok := d.slots[slotID]
	return ok
}

func (d *DaySchedule) put(a Assignment) bool {
	if d.Occupied(a.Slot.ID) {
		return false
	}
	d.slots[a.Slot.ID] = a
	if !a.IsBreak {
		d.placed = append(d.placed, a.Slot.ID)
	}
	return true
}

// TeacherAt reports whether the teacher holds a teaching assignment in the slot.
func (d *DaySchedule) TeacherAt(teacherID string, slotID int) bool {
	a, ok := d.slots[slotID]
	return ok && !a.IsBreak && a.TeacherID == teacherID
}

// Entries returns every entry, breaks included, in grid order.
func (d *DaySchedule) Entries() []Assignment {
	out := make([]Assignment, 0, len(d.slots))
	for _, a := range d.slots {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return d.grid.Position(out[i].Slot.ID) < d.grid.Position(out[j].Slot.ID)
	})
	return out
}

// Assignments returns teaching assignments in grid order.
func (d *DaySchedule) Assignments() []Assignment {
	all := d.Entries()
	out := all[:0]
	for _, a := range all {
		if !a.IsBreak {
			out = append(out, a)
		}
	}
	return out
}

// PlacementOrder returns teaching assignments in the order they were decided.
func (d *DaySchedule) PlacementOrder() []Assignment {
	out := make([]Assignment, 0, len(d.placed))
	for _, id := range d.placed {
		out = append(out, d.slots[id])
	}
	return out
}

// Summary counts scheduled, substituted and unscheduled sections.
func (d *DaySchedule) Summary() DaySummary {
	summary := DaySummary{Date: d.Key(), Unscheduled: len(d.Unscheduled)}
	for _, a := range d.slots {
		if a.IsBreak {
			continue
		}
		summary.Scheduled++
		if a.IsSubstitute {
			summary.Substitutions++
		}
	}
	return summary
}

// DaySummary is the per-date statistic surfaced to callers.
type DaySummary struct {
	Date          string `json:"date"`
	Scheduled     int    `json:"scheduled"`
	Substitutions int    `json:"substitutions"`
	Unscheduled   int    `json:"unscheduled"`
}
