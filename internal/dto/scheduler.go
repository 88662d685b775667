package dto

import (
	"time"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
	"github.com/noah-isme/sma-daily-scheduler/internal/scheduler"
)

// Day outcomes reported per date.
const (
	DayStatusStored    = "stored"
	DayStatusFailed    = "failed"
	DayStatusGenerated = "generated"
)

// GenerateDayRequest asks for a single date to be scheduled and stored.
type GenerateDayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// GenerateWeekRequest schedules consecutive calendar days, skipping weekends.
// Atomic stores the whole range in one transaction.
type GenerateWeekRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	Days      int    `json:"days" validate:"omitempty,min=1,max=31"`
	Atomic    bool   `json:"atomic"`
}

// StartRunRequest queues a background multi-day run.
type StartRunRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	Days      int    `json:"days" validate:"required,min=1,max=62"`
}

// StatsQuery bounds a statistics read.
type StatsQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to" validate:"required,datetime=2006-01-02"`
}

// UpdateDayStatusRequest moves every stored row of a date to a new lifecycle status.
type UpdateDayStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled completed cancelled"`
}

// TeacherScheduleQuery bounds a per-teacher read.
type TeacherScheduleQuery struct {
	TeacherID string `form:"teacherId" validate:"required"`
	From      string `form:"from" validate:"required,datetime=2006-01-02"`
	To        string `form:"to" validate:"required,datetime=2006-01-02"`
}

// DayResult is the outcome of generating one date.
type DayResult struct {
	Date        string                         `json:"date"`
	Status      string                         `json:"status"`
	Error       string                         `json:"error,omitempty"`
	Summary     scheduler.DaySummary           `json:"summary"`
	Entries     []scheduler.Assignment         `json:"entries,omitempty"`
	Unscheduled []scheduler.UnscheduledSection `json:"unscheduled,omitempty"`
}

// WeekResult collects the days of a multi-day generation.
type WeekResult struct {
	StartDate string          `json:"startDate"`
	Atomic    bool            `json:"atomic"`
	Days      []DayResult     `json:"days"`
	Stats     scheduler.Stats `json:"stats"`
	// Cancelled is set when generation stopped early; Days lists only the dates reached.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Run lifecycle states.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// RunStatus reports the progress of a background run.
type RunStatus struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	StartDate string                 `json:"startDate"`
	Days      int                    `json:"days"`
	Stored    int                    `json:"stored"`
	Failed    int                    `json:"failed"`
	Summaries []scheduler.DaySummary `json:"summaries"`
	Failures  map[string]string      `json:"failures,omitempty"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// Terminal reports whether the run can no longer change.
func (r RunStatus) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// StatsTotals sums the per-day substitution stats.
type StatsTotals struct {
	Days             int     `json:"days"`
	Scheduled        int     `json:"scheduled"`
	Substitutions    int     `json:"substitutions"`
	SubstitutionRate float64 `json:"substitutionRate"`
}

// StatsResponse is returned by the statistics endpoint.
type StatsResponse struct {
	From   string                    `json:"from"`
	To     string                    `json:"to"`
	Days   []models.SubstitutionStat `json:"days"`
	Totals StatsTotals               `json:"totals"`
}

// UpsertPreferenceRequest replaces the stored preferences of a teacher.
// A zero MaxLoadPerDay keeps the engine default.
type UpsertPreferenceRequest struct {
	MaxLoadPerDay int                             `json:"max_load_per_day" validate:"min=0,max=12"`
	Unavailable   []models.TeacherUnavailableSlot `json:"unavailable" validate:"dive"`
}

// CreateLeaveRequest records an approved absence, inclusive on both ends.
type CreateLeaveRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"max=255"`
}

// LeaveQuery bounds a leave listing.
type LeaveQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to" validate:"required,datetime=2006-01-02"`
}
