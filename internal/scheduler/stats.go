package scheduler

// Stats aggregates several generated days.
type Stats struct {
	TotalDays           int            `json:"totalDays"`
	Scheduled           int            `json:"scheduled"`
	Substitutions       int            `json:"substitutions"`
	Unscheduled         int            `json:"unscheduled"`
	TeacherWorkload     map[string]int `json:"teacherWorkload"`
	SubjectDistribution map[string]int `json:"subjectDistribution"`
}

// SubstitutionRate is substitutions over scheduled assignments.
func (s Stats) SubstitutionRate() float64 {
	if s.Scheduled == 0 {
		return 0
	}
	return float64(s.Substitutions) / float64(s.Scheduled)
}

// Summarize folds day schedules into Stats.
func Summarize(days []*DaySchedule) Stats {
	stats := Stats{
		TeacherWorkload:     make(map[string]int),
		SubjectDistribution: make(map[string]int),
	}
	for _, day := range days {
		if day == nil {
			continue
		}
		stats.TotalDays++
		stats.Unscheduled += len(day.Unscheduled)
		for _, a := range day.Assignments() {
			stats.Scheduled++
			if a.IsSubstitute {
				stats.Substitutions++
			}
			stats.TeacherWorkload[a.TeacherID]++
			stats.SubjectDistribution[a.Subject]++
		}
	}
	return stats
}
