package scheduler

import "github.com/noah-isme/sma-daily-scheduler/internal/models"

// SubstitutePools maps a teacher id to the ordered ids of teachers who may cover for them.
type SubstitutePools map[string][]string

// For returns the candidates for a teacher, nil when there are none.
func (p SubstitutePools) For(teacherID string) []string {
	return p[teacherID]
}

// BuildSubstitutePools groups generally available teachers by subject and, for every teacher,
// lists same-subject colleagues first and then teachers of each related subject in graph order.
// Per-date availability is not consulted here.
func BuildSubstitutePools(teachers []models.Teacher, snapshot *AvailabilitySnapshot, graph AffinityGraph) SubstitutePools {
	bySubject := make(map[string][]string)
	for _, teacher := range teachers {
		if !snapshot.GenerallyAvailable(teacher.ID) {
			continue
		}
		subject := subjectOf(teacher, snapshot)
		bySubject[subject] = append(bySubject[subject], teacher.ID)
	}

	pools := make(SubstitutePools, len(teachers))
	for _, teacher := range teachers {
		subject := subjectOf(teacher, snapshot)
		seen := map[string]bool{teacher.ID: true}
		var pool []string
		add := func(ids []string) {
			for _, id := range ids {
				if seen[id] {
					continue
				}
				seen[id] = true
				pool = append(pool, id)
			}
		}
		add(bySubject[subject])
		for _, related := range graph.Related(subject) {
			add(bySubject[related])
		}
		pools[teacher.ID] = pool
	}
	return pools
}

func subjectOf(teacher models.Teacher, snapshot *AvailabilitySnapshot) string {
	if teacher.Subject != "" {
		return teacher.Subject
	}
	return snapshot.Subject(teacher.ID)
}
