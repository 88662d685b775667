package scheduler

import (
	"fmt"
	"sort"
	"strconv"
)

// TimeSlot is one interval of the daily grid. Break slots carry Period 0.
type TimeSlot struct {
	ID      int    `json:"id"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Period  int    `json:"period"`
	Label   string `json:"label"`
	IsBreak bool   `json:"isBreak"`
}

// PeriodLabel returns the numeric period or the break marker.
func (s TimeSlot) PeriodLabel() string {
	if s.IsBreak {
		return s.Label
	}
	return strconv.Itoa(s.Period)
}

// TimeGrid is the immutable ordered slot sequence shared by every day.
type TimeGrid struct {
	slots []TimeSlot
	index map[int]int
}

// NewTimeGrid orders slots by start time and rejects duplicate ids.
func NewTimeGrid(slots []TimeSlot) (TimeGrid, error) {
	ordered := make([]TimeSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})
	index := make(map[int]int, len(ordered))
	for i, slot := range ordered {
		if _, exists := index[slot.ID]; exists {
			return TimeGrid{}, fmt.Errorf("duplicate time slot id %d", slot.ID)
		}
		if slot.End <= slot.Start {
			return TimeGrid{}, fmt.Errorf("time slot %d ends before it starts", slot.ID)
		}
		index[slot.ID] = i
	}
	return TimeGrid{slots: ordered, index: index}, nil
}

// DefaultTimeGrid is the bell schedule: ten periods split by two short breaks and lunch.
func DefaultTimeGrid() TimeGrid {
	grid, err := NewTimeGrid([]TimeSlot{
		{ID: 1, Start: "08:00", End: "08:45", Period: 1},
		{ID: 2, Start: "08:45", End: "09:30", Period: 2},
		{ID: 3, Start: "09:30", End: "10:15", Period: 3},
		{ID: 4, Start: "10:15", End: "10:30", Label: "BREAK", IsBreak: true},
		{ID: 5, Start: "10:30", End: "11:15", Period: 4},
		{ID: 6, Start: "11:15", End: "12:00", Period: 5},
		{ID: 7, Start: "12:00", End: "12:45", Period: 6},
		{ID: 8, Start: "12:45", End: "13:30", Label: "LUNCH", IsBreak: true},
		{ID: 9, Start: "13:30", End: "14:15", Period: 7},
		{ID: 10, Start: "14:15", End: "15:00", Period: 8},
		{ID: 11, Start: "15:00", End: "15:45", Period: 9},
		{ID: 12, Start: "15:45", End: "16:00", Label: "BREAK", IsBreak: true},
		{ID: 13, Start: "16:00", End: "16:45", Period: 10},
	})
	if err != nil {
		panic(err)
	}
	return grid
}

// Slots returns the ordered slots.
func (g TimeGrid) Slots() []TimeSlot {
	out := make([]TimeSlot, len(g.slots))
	copy(out, g.slots)
	return out
}

// TeachingSlots returns non-break slots in grid order.
func (g TimeGrid) TeachingSlots() []TimeSlot {
	out := make([]TimeSlot, 0, len(g.slots))
	for _, slot := range g.slots {
		if !slot.IsBreak {
			out = append(out, slot)
		}
	}
	return out
}

// BreakSlots returns break slots in grid order.
func (g TimeGrid) BreakSlots() []TimeSlot {
	var out []TimeSlot
	for _, slot := range g.slots {
		if slot.IsBreak {
			out = append(out, slot)
		}
	}
	return out
}

// Slot looks up a slot by id.
func (g TimeGrid) Slot(id int) (TimeSlot, bool) {
	idx, ok := g.index[id]
	if !ok {
		return TimeSlot{}, false
	}
	return g.slots[idx], true
}

// Position returns the grid index of a slot id, or -1.
func (g TimeGrid) Position(id int) int {
	idx, ok := g.index[id]
	if !ok {
		return -1
	}
	return idx
}

// At returns the slot at a grid index.
func (g TimeGrid) At(pos int) (TimeSlot, bool) {
	if pos < 0 || pos >= len(g.slots) {
		return TimeSlot{}, false
	}
	return g.slots[pos], true
}

// SlotForPeriod maps a teaching period number to its slot.
func (g TimeGrid) SlotForPeriod(period int) (TimeSlot, bool) {
	for _, slot := range g.slots {
		if !slot.IsBreak && slot.Period == period {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// Len reports the number of slots including breaks.
func (g TimeGrid) Len() int {
	return len(g.slots)
}
