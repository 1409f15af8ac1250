// Package board turns raw tracker records into the weekly iteration
// board: workflow columns, people assignments, and point totals.
package board

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"iterboard/internal/tracker"
)

// RemoteClient is the read surface of the tracker the engine needs.
// *tracker.Client satisfies it.
type RemoteClient interface {
	Me(ctx context.Context) (tracker.Person, error)
	ListProjects(ctx context.Context, fields string) ([]tracker.Project, error)
	ListMemberships(ctx context.Context, projectID int) ([]tracker.Membership, error)
	SearchStories(ctx context.Context, projectID int, filter string) ([]tracker.Story, error)
}

// ViewModel is the materialized board for one evaluation of the filters.
type ViewModel struct {
	Columns          []Column
	ReleasedLastWeek Column

	Projects           []Project
	ProjectVelocitySum int

	PerProjectEstimate     map[int]int
	TotalIterationEstimate int
	MyIterationEstimate    int

	SelectedProjectID int
	MyStoriesOnly     bool
	ShowLastWeek      bool

	WeekStart time.Time
	WeekEnd   time.Time
	UpdatedAt time.Time
}

// Engine fetches the tracker state once per instance and derives the
// board from that frozen snapshot. One engine serves one authenticated
// session; the session cache owns its lifetime. It is not safe for
// concurrent use.
type Engine struct {
	client    RemoteClient
	now       func() time.Time
	weekStart time.Weekday
	linkHost  string

	// Filter selections, read at view-build time.
	SelectedProjectID int
	MyStoriesOnly     bool
	ShowLastWeek      bool

	CreatedAt time.Time

	// One-shot caches: filled on first successful fetch, never on failure,
	// so a failed fetch is retried from scratch on the next access.
	projects  []Project
	haveProjs bool
	directory *Directory
	me        *Person
	annotated map[int][]AnnotatedStory
}

type Option func(*Engine)

// WithClock injects the time source used for week boundaries. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithWeekStart(day time.Weekday) Option {
	return func(e *Engine) { e.weekStart = day }
}

// WithLinkHost sets the host whose HTTPS links are pulled out of story
// descriptions.
func WithLinkHost(host string) Option {
	return func(e *Engine) { e.linkHost = host }
}

func New(client RemoteClient, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, ErrMissingToken
	}
	e := &Engine{
		client:    client,
		now:       time.Now,
		weekStart: time.Monday,
		linkHost:  "github.com",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.CreatedAt = e.now()
	return e, nil
}

// Projects returns the normalized, sorted project list. Memoized.
func (e *Engine) Projects(ctx context.Context) ([]Project, error) {
	if e.haveProjs {
		return e.projects, nil
	}
	raw, err := e.client.ListProjects(ctx, projectFields)
	if err != nil {
		return nil, err
	}
	e.projects = filterProjects(raw)
	e.haveProjs = true
	return e.projects, nil
}

// TotalVelocity sums current velocity over the visible projects.
func (e *Engine) TotalVelocity(ctx context.Context) (int, error) {
	projects, err := e.Projects(ctx)
	if err != nil {
		return 0, err
	}
	return totalVelocity(projects), nil
}

// People returns the membership directory across all visible projects.
// Memoized.
func (e *Engine) People(ctx context.Context) (*Directory, error) {
	if e.directory != nil {
		return e.directory, nil
	}
	projects, err := e.Projects(ctx)
	if err != nil {
		return nil, err
	}
	var people []Person
	for _, project := range projects {
		memberships, err := e.client.ListMemberships(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range memberships {
			people = append(people, Person(m.Person))
		}
	}
	e.directory = NewDirectory(people)
	return e.directory, nil
}

// Me returns the person the session token belongs to. Memoized.
func (e *Engine) Me(ctx context.Context) (Person, error) {
	if e.me != nil {
		return *e.me, nil
	}
	raw, err := e.client.Me(ctx)
	if err != nil {
		return Person{}, err
	}
	me := Person(raw)
	e.me = &me
	return me, nil
}

// currentPerson resolves "me" through the directory by initials, the same
// path reviewer and QA mentions resolve through. Nil when the initials
// match nobody.
func (e *Engine) currentPerson(ctx context.Context) (*Person, error) {
	me, err := e.Me(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := e.People(ctx)
	if err != nil {
		return nil, err
	}
	return dir.ByInitials(me.Initials), nil
}

// storiesByProject fetches and annotates every project's in-scope stories.
// Fetches fan out per project; the result is memoized only when every
// fetch succeeds.
func (e *Engine) storiesByProject(ctx context.Context) (map[int][]AnnotatedStory, error) {
	if e.annotated != nil {
		return e.annotated, nil
	}
	projects, err := e.Projects(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := e.People(ctx)
	if err != nil {
		return nil, err
	}

	query := storyQuery(startOfWeek(e.now(), e.weekStart))
	annotator := NewAnnotator(dir, e.linkHost)

	byProject := make(map[int][]AnnotatedStory, len(projects))
	group, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, project := range projects {
		project := project
		group.Go(func() error {
			raw, err := e.client.SearchStories(gctx, project.ID, query)
			if err != nil {
				return err
			}
			annotated := annotateAll(annotator, raw)
			mu.Lock()
			byProject[project.ID] = annotated
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	e.annotated = byProject
	return byProject, nil
}

// selectedStories flattens the per-project stories down to the current
// selection (one project or all), sorted by (project, id), with the
// "my stories" filter applied when mine is non-nil.
func (e *Engine) selectedStories(byProject map[int][]AnnotatedStory, mine func(AnnotatedStory) bool) []AnnotatedStory {
	var flat []AnnotatedStory
	if e.SelectedProjectID != 0 {
		flat = append(flat, byProject[e.SelectedProjectID]...)
	} else {
		for _, stories := range byProject {
			flat = append(flat, stories...)
		}
	}
	sortStories(flat)
	if mine == nil {
		return flat
	}
	selected := flat[:0:0]
	for _, s := range flat {
		if mine(s) {
			selected = append(selected, s)
		}
	}
	return selected
}

// BuildView materializes the board for the current filter selections.
// All remote state comes from the engine's frozen snapshot; only the
// classification and totals are recomputed per call.
func (e *Engine) BuildView(ctx context.Context) (*ViewModel, error) {
	projects, err := e.Projects(ctx)
	if err != nil {
		return nil, err
	}
	byProject, err := e.storiesByProject(ctx)
	if err != nil {
		return nil, err
	}
	self, err := e.currentPerson(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	weekStart := startOfWeek(now, e.weekStart)

	var mine func(AnnotatedStory) bool
	if e.MyStoriesOnly {
		mine = func(s AnnotatedStory) bool {
			return self != nil && s.Involves(*self)
		}
	}

	classification := Classify(e.selectedStories(byProject, mine), weekStart)
	// The released-last-week bucket ignores the "my stories" filter.
	lastWeek := releasedLastWeek(e.selectedStories(byProject, nil), weekStart)

	perProject := perProjectEstimates(byProject, mine, weekStart)
	total := 0
	for _, points := range perProject {
		total += points
	}

	return &ViewModel{
		Columns:          classification.Columns,
		ReleasedLastWeek: lastWeek,

		Projects:           projects,
		ProjectVelocitySum: totalVelocity(projects),

		PerProjectEstimate:     perProject,
		TotalIterationEstimate: total,
		MyIterationEstimate:    myEstimate(byProject, self),

		SelectedProjectID: e.SelectedProjectID,
		MyStoriesOnly:     e.MyStoriesOnly,
		ShowLastWeek:      e.ShowLastWeek,

		WeekStart: weekStart,
		WeekEnd:   endOfWeek(now, e.weekStart),
		UpdatedAt: e.CreatedAt,
	}, nil
}
