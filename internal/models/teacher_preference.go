package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TeacherUnavailableSlot blocks a weekday period range such as "1-3" or "7".
type TeacherUnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	TimeRange string `json:"time_range"`
}

// TeacherPreference stores the daily cap and recurring unavailable windows for a teacher.
type TeacherPreference struct {
	ID            string         `db:"id" json:"id"`
	TeacherID     string         `db:"teacher_id" json:"teacher_id"`
	MaxLoadPerDay int            `db:"max_load_per_day" json:"max_load_per_day"`
	Unavailable   types.JSONText `db:"unavailable" json:"unavailable"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
