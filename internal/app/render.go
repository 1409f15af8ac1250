package app

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"iterboard/internal/board"
	"iterboard/internal/tracker"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(
	template.New("").Funcs(templateFuncs()).ParseFS(templateFS, "templates/*.html"),
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"storyIcon":    storyIcon,
		"stateColor":   stateColor,
		"initialsList": initialsList,
		"needsRole":    needsRole,
		"formatDate": func(t time.Time) string {
			return t.Format("Mon Jan 2")
		},
	}
}

func storyIcon(storyType string) string {
	switch storyType {
	case tracker.TypeBug:
		return "fa fa-bug"
	case tracker.TypeChore:
		return "glyphicon glyphicon-cog"
	case tracker.TypeFeature:
		return "glyphicon glyphicon-star"
	default:
		return ""
	}
}

func stateColor(s board.AnnotatedStory) string {
	if s.Story.HasLabel("will not do") {
		return "danger"
	}
	switch s.Story.CurrentState {
	case tracker.StateStarted:
		return "info"
	case tracker.StateFinished:
		return "warning"
	case tracker.StateDelivered, tracker.StateAccepted:
		return "success"
	default:
		return "default"
	}
}

func initialsList(people []board.Person) string {
	initials := make([]string, 0, len(people))
	for _, p := range people {
		initials = append(initials, p.Initials)
	}
	return strings.Join(initials, ", ")
}

// needsRole reports whether a story's state calls for the given role to
// be assigned. Chores never need one.
func needsRole(role string, s board.AnnotatedStory) bool {
	if s.Story.StoryType == tracker.TypeChore {
		return false
	}
	state := s.Story.CurrentState
	switch role {
	case "developers":
		return state == tracker.StateStarted || state == tracker.StateFinished ||
			state == tracker.StateDelivered || state == tracker.StateAccepted
	case "reviewers", "qa":
		return state == tracker.StateFinished || state == tracker.StateDelivered ||
			state == tracker.StateAccepted
	}
	return false
}

type projectLink struct {
	Project  board.Project
	Path     string
	Selected bool
	Estimate int
}

type boardPage struct {
	View          *board.ViewModel
	ProjectLinks  []projectLink
	AllPath       string
	MyStoriesPath string
	LastWeekPath  string
	RefreshPath   string
}

type indexPage struct {
	Error string
}

func (s *HTTPServer) renderBoard(w http.ResponseWriter, page boardPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "board.html", page); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *HTTPServer) renderIndex(w http.ResponseWriter, status int, page indexPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, "index.html", page); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}
