package board

import (
	"time"

	"iterboard/internal/tracker"
)

// Column titles, in board order.
const (
	ColumnPlanned    = "Planned"
	ColumnStarted    = "Started"
	ColumnReadyForCR = "Ready for CR"
	ColumnReadyForQA = "Ready for QA"
	ColumnDelivered  = "Delivered"
	ColumnReleased   = "Released"
)

type Column struct {
	Title       string
	Stories     []AnnotatedStory
	TotalPoints int
}

// Classification is the board: the six workflow columns plus the
// released-last-week bucket, which is reported separately rather than
// rendered as a column.
type Classification struct {
	Columns          []Column
	ReleasedLastWeek Column
}

// isReleased: accepted, and either explicitly labeled released, written
// off as "will not do", or a chore (chores ship when accepted).
func isReleased(s AnnotatedStory) bool {
	if s.Story.CurrentState != tracker.StateAccepted {
		return false
	}
	return s.Story.HasLabel("released") ||
		s.Story.HasLabel(labelWillNotDo) ||
		s.Story.StoryType == tracker.TypeChore
}

// isLastWeek: accepted before the current week started.
func isLastWeek(s AnnotatedStory, weekStart time.Time) bool {
	return s.Story.CurrentState == tracker.StateAccepted &&
		s.Story.AcceptedAt != nil &&
		s.Story.AcceptedAt.Before(weekStart)
}

// Classify buckets every story into exactly one place. Rules run in
// precedence order; each assumes the earlier ones already claimed their
// stories. Note the "ready for qa" label claims a story regardless of its
// raw state once planned/started are ruled out, so a mislabeled story can
// land in Ready for QA early. That matches the board's historical
// behavior and is intentional.
func Classify(stories []AnnotatedStory, weekStart time.Time) Classification {
	var planned, started, readyForCR, readyForQA, delivered, released, lastWeek []AnnotatedStory

	for _, s := range stories {
		switch {
		case isReleased(s) && isLastWeek(s, weekStart):
			lastWeek = append(lastWeek, s)
		case s.Story.CurrentState == tracker.StatePlanned:
			planned = append(planned, s)
		case s.Story.CurrentState == tracker.StateStarted:
			started = append(started, s)
		case s.Story.CurrentState == tracker.StateFinished && !s.Story.HasLabel(labelReadyForQA):
			readyForCR = append(readyForCR, s)
		case s.Story.HasLabel(labelReadyForQA):
			readyForQA = append(readyForQA, s)
		case s.Story.CurrentState == tracker.StateDelivered:
			delivered = append(delivered, s)
		case s.Story.CurrentState == tracker.StateAccepted && !isReleased(s):
			// Accepted but not yet released; shares the Delivered column.
			delivered = append(delivered, s)
		case isReleased(s):
			released = append(released, s)
		}
	}

	return Classification{
		Columns: []Column{
			newColumn(ColumnPlanned, planned),
			newColumn(ColumnStarted, started),
			newColumn(ColumnReadyForCR, readyForCR),
			newColumn(ColumnReadyForQA, readyForQA),
			newColumn(ColumnDelivered, delivered),
			newColumn(ColumnReleased, released),
		},
		ReleasedLastWeek: newColumn("Released last week", lastWeek),
	}
}

func newColumn(title string, stories []AnnotatedStory) Column {
	return Column{
		Title:       title,
		Stories:     stories,
		TotalPoints: sumEstimates(stories),
	}
}

// releasedLastWeek selects the cross-cutting bucket on its own, for
// callers that need it computed over a different story set than the
// columns (the bucket ignores the "my stories" filter).
func releasedLastWeek(stories []AnnotatedStory, weekStart time.Time) Column {
	var selected []AnnotatedStory
	for _, s := range stories {
		if isReleased(s) && isLastWeek(s, weekStart) {
			selected = append(selected, s)
		}
	}
	return newColumn("Released last week", selected)
}
