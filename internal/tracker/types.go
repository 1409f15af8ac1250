package tracker

import "time"

// Story states as reported by the tracker API.
const (
	StatePlanned   = "planned"
	StateStarted   = "started"
	StateFinished  = "finished"
	StateDelivered = "delivered"
	StateAccepted  = "accepted"
)

// Story types.
const (
	TypeBug     = "bug"
	TypeChore   = "chore"
	TypeFeature = "feature"
	TypeRelease = "release"
)

type Project struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	CurrentVelocity int    `json:"current_velocity"`
}

type Person struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Initials string `json:"initials"`
}

type Membership struct {
	Person Person `json:"person"`
}

type Label struct {
	Name string `json:"name"`
}

// Story is the raw work-item record as the tracker returns it.
// Estimate and AcceptedAt are null for unestimated / not-yet-accepted stories.
type Story struct {
	ID            int        `json:"id"`
	ProjectID     int        `json:"project_id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	StoryType     string     `json:"story_type"`
	CurrentState  string     `json:"current_state"`
	Estimate      *int       `json:"estimate,omitempty"`
	Labels        []Label    `json:"labels"`
	RequestedByID int        `json:"requested_by_id"`
	OwnerIDs      []int      `json:"owner_ids"`
	Description   string     `json:"description"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
}

// HasLabel reports whether the story carries the named label.
func (s Story) HasLabel(name string) bool {
	for _, label := range s.Labels {
		if label.Name == name {
			return true
		}
	}
	return false
}
