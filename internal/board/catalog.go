package board

import (
	"sort"
	"strings"

	"iterboard/internal/tracker"
)

// Project is a tracker project after board-level normalization.
type Project struct {
	ID       int
	Name     string
	Velocity int
}

const (
	excludedProjectPrefix = "Onstride"
	strippedNamePrefix    = "NetCredit - "
)

// projectFields is what we ask the tracker to serialize for project lists.
const projectFields = "name,current_velocity"

// filterProjects drops excluded projects, normalizes names, and sorts the
// remainder by name.
func filterProjects(raw []tracker.Project) []Project {
	projects := make([]Project, 0, len(raw))
	for _, p := range raw {
		if strings.HasPrefix(p.Name, excludedProjectPrefix) {
			continue
		}
		projects = append(projects, Project{
			ID:       p.ID,
			Name:     strings.Replace(p.Name, strippedNamePrefix, "", 1),
			Velocity: p.CurrentVelocity,
		})
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})
	return projects
}

func totalVelocity(projects []Project) int {
	total := 0
	for _, p := range projects {
		total += p.Velocity
	}
	return total
}
