package scheduler

// AffinityGraph lists, per subject, the subjects whose teachers may cover it, in preference order.
type AffinityGraph map[string][]string

// DefaultAffinityGraph returns the curated subject adjacency table.
func DefaultAffinityGraph() AffinityGraph {
	return AffinityGraph{
		"Mathematics":        {"Physics", "Statistics", "Computer Science"},
		"Physics":            {"Mathematics", "Chemistry"},
		"Chemistry":          {"Physics", "Biology"},
		"Biology":            {"Chemistry", "Psychology"},
		"English":            {"History", "Geography"},
		"History":            {"English", "Geography", "Economics"},
		"Geography":          {"History", "Economics"},
		"Art":                {"Music"},
		"Music":              {"Art"},
		"Business":           {"Economics", "Mathematics"},
		"Economics":          {"Business", "Mathematics", "Statistics"},
		"Psychology":         {"Biology", "English"},
		"Computer Science":   {"Mathematics", "Physics"},
		"Statistics":         {"Mathematics", "Economics"},
		"Physical Education": {},
	}
}

// Related returns the direct neighbours of a subject. Unknown subjects have none.
func (g AffinityGraph) Related(subject string) []string {
	related := g[subject]
	out := make([]string, len(related))
	copy(out, related)
	return out
}

// Reachable reports whether to can be reached from from by following related-subject edges.
func (g AffinityGraph) Reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g[current] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
