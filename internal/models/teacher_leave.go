package models

import "time"

// TeacherLeave is an approved absence covering whole days, inclusive on both ends.
type TeacherLeave struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether the leave includes the calendar date.
func (l TeacherLeave) Covers(date time.Time) bool {
	day := truncateDay(date)
	return !day.Before(truncateDay(l.StartDate)) && !day.After(truncateDay(l.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
