package board

import (
	"regexp"
	"strings"

	"iterboard/internal/tracker"
)

const (
	labelWillNotDo  = "will not do"
	labelReadyForQA = "ready for qa"
)

// AnnotatedStory wraps an immutable raw story with the people and links
// derived for it. Estimate is the effective estimate: the stored points,
// zeroed when the story is labeled "will not do".
type AnnotatedStory struct {
	Story         tracker.Story
	Estimate      int
	Requester     *Person
	Developers    []Person
	Reviewers     []Person
	QA            []Person
	ExternalLinks []string
}

// Involves reports whether p is among the story's developers, reviewers,
// or QA. The requester alone does not make a story "mine".
func (s AnnotatedStory) Involves(p Person) bool {
	for _, set := range [][]Person{s.Developers, s.Reviewers, s.QA} {
		for _, member := range set {
			if member.ID == p.ID {
				return true
			}
		}
	}
	return false
}

// Reviewer and QA assignments live in the story description as free text:
//
//	CR1: jd
//	CR2: ab
//	QA: cd, ef
//
// The capture runs to the end of the line; missing or unresolvable
// initials are dropped without error.
var roleSegmentRe = map[string]*regexp.Regexp{
	"CR1": regexp.MustCompile(`CR1:[ \t]*([^\n]*)`),
	"CR2": regexp.MustCompile(`CR2:[ \t]*([^\n]*)`),
	"QA":  regexp.MustCompile(`QA:[ \t]*([^\n]*)`),
}

func roleSegment(description, role string) string {
	match := roleSegmentRe[role].FindStringSubmatch(description)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// Annotator derives people assignments and links for stories against a
// fixed directory snapshot. Annotation is pure: same story and snapshot,
// same result.
type Annotator struct {
	dir    *Directory
	linkRe *regexp.Regexp
}

func NewAnnotator(dir *Directory, linkHost string) *Annotator {
	return &Annotator{
		dir:    dir,
		linkRe: regexp.MustCompile(`https://` + regexp.QuoteMeta(linkHost) + `/\S+`),
	}
}

func (a *Annotator) Annotate(story tracker.Story) AnnotatedStory {
	annotated := AnnotatedStory{Story: story}

	if story.Estimate != nil {
		annotated.Estimate = *story.Estimate
	}
	if story.HasLabel(labelWillNotDo) {
		annotated.Estimate = 0
	}

	annotated.Requester = a.dir.ByID(story.RequestedByID)
	for _, id := range story.OwnerIDs {
		if p := a.dir.ByID(id); p != nil {
			annotated.Developers = append(annotated.Developers, *p)
		}
	}

	for _, role := range []string{"CR1", "CR2"} {
		initials := roleSegment(story.Description, role)
		if initials == "" {
			continue
		}
		if p := a.dir.ByInitials(initials); p != nil {
			annotated.Reviewers = append(annotated.Reviewers, *p)
		}
	}

	if segment := roleSegment(story.Description, "QA"); segment != "" {
		for _, initials := range strings.Split(segment, ",") {
			initials = strings.TrimSpace(initials)
			if initials == "" {
				continue
			}
			if p := a.dir.ByInitials(initials); p != nil {
				annotated.QA = append(annotated.QA, *p)
			}
		}
	}

	annotated.ExternalLinks = a.linkRe.FindAllString(story.Description, -1)
	return annotated
}
