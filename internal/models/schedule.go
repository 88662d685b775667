package models

import "time"

// ScheduleStatus tracks the lifecycle of a persisted daily row.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// DailySchedule is one persisted teaching assignment for a date and time slot.
type DailySchedule struct {
	ID                string         `db:"id" json:"id"`
	ScheduleDate      time.Time      `db:"schedule_date" json:"schedule_date"`
	TimeSlotID        int            `db:"time_slot_id" json:"time_slot_id"`
	PeriodNumber      int            `db:"period_number" json:"period_number"`
	StartTime         string         `db:"start_time" json:"start_time"`
	EndTime           string         `db:"end_time" json:"end_time"`
	ClassID           string         `db:"class_id" json:"class_id"`
	TeacherID         string         `db:"teacher_id" json:"teacher_id"`
	IsSubstitute      bool           `db:"is_substitute" json:"is_substitute"`
	OriginalTeacherID *string        `db:"original_teacher_id" json:"original_teacher_id,omitempty"`
	Subject           string         `db:"subject" json:"subject"`
	RoomNumber        string         `db:"room_number" json:"room_number"`
	EnrolledCount     int            `db:"enrolled_count" json:"enrolled_count"`
	Status            ScheduleStatus `db:"status" json:"status"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
}

// SubstitutionStat aggregates a day's persisted rows for dashboards.
type SubstitutionStat struct {
	ScheduleDate  time.Time `db:"schedule_date" json:"schedule_date"`
	Scheduled     int       `db:"scheduled" json:"scheduled"`
	Substitutions int       `db:"substitutions" json:"substitutions"`
}

// SubstitutionRate returns the share of rows covered by a substitute.
func (s SubstitutionStat) SubstitutionRate() float64 {
	if s.Scheduled == 0 {
		return 0
	}
	return float64(s.Substitutions) / float64(s.Scheduled)
}
