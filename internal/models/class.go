package models

// ClassSection is a schedulable class with its regular teacher and live enrollment.
type ClassSection struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Subject       string `db:"subject" json:"subject"`
	TeacherID     string `db:"teacher_id" json:"teacher_id"`
	EnrolledCount int    `db:"enrolled_count" json:"enrolled_count"`
}

// Schedulable reports whether the section has anyone to teach.
func (c ClassSection) Schedulable() bool {
	return c.EnrolledCount > 0
}
