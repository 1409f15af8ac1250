package board

import "time"

func sumEstimates(stories []AnnotatedStory) int {
	total := 0
	for _, s := range stories {
		total += s.Estimate
	}
	return total
}

// perProjectEstimates sums effective estimates per project, skipping
// released-last-week stories (they belong to the previous iteration).
// When mine is non-nil only matching stories count.
func perProjectEstimates(byProject map[int][]AnnotatedStory, mine func(AnnotatedStory) bool, weekStart time.Time) map[int]int {
	estimates := make(map[int]int, len(byProject))
	for projectID, stories := range byProject {
		total := 0
		for _, s := range stories {
			if mine != nil && !mine(s) {
				continue
			}
			if isReleased(s) && isLastWeek(s, weekStart) {
				continue
			}
			total += s.Estimate
		}
		estimates[projectID] = total
	}
	return estimates
}

// myEstimate sums effective estimates over every story the person is
// assigned to, across all projects.
func myEstimate(byProject map[int][]AnnotatedStory, self *Person) int {
	if self == nil {
		return 0
	}
	total := 0
	for _, stories := range byProject {
		for _, s := range stories {
			if s.Involves(*self) {
				total += s.Estimate
			}
		}
	}
	return total
}
