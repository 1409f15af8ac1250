package board

import (
	"fmt"
	"sort"
	"time"

	"iterboard/internal/tracker"
)

// storyQuery builds the fixed story search filter: everything still in
// flight this iteration, plus items accepted since a week before the
// current week started, release markers excluded.
func storyQuery(weekStart time.Time) string {
	acceptedAfter := weekStart.AddDate(0, 0, -7).Format("2006-01-02")
	return fmt.Sprintf(
		"(state:planned OR state:started OR state:finished OR state:delivered OR accepted_after:%s) includedone:true -type:release",
		acceptedAfter,
	)
}

// sortStories orders stories by (project ID, story ID) ascending, the
// canonical order everywhere the board shows a list.
func sortStories(stories []AnnotatedStory) {
	sort.Slice(stories, func(i, j int) bool {
		if stories[i].Story.ProjectID != stories[j].Story.ProjectID {
			return stories[i].Story.ProjectID < stories[j].Story.ProjectID
		}
		return stories[i].Story.ID < stories[j].Story.ID
	})
}

// annotateAll annotates one project's raw stories in place-order.
func annotateAll(annotator *Annotator, raw []tracker.Story) []AnnotatedStory {
	annotated := make([]AnnotatedStory, 0, len(raw))
	for _, story := range raw {
		annotated = append(annotated, annotator.Annotate(story))
	}
	return annotated
}
