// Package tracker is a read-only HTTP client for the project-management
// service's v5-style JSON API. It covers the four calls the board needs:
// the current user, projects, memberships, and story search.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoToken is returned by NewClient when no API token is supplied.
var ErrNoToken = errors.New("tracker: api token required")

// RemoteError wraps a failed call to the tracker with enough context to log:
// the operation, the project it targeted (0 when not project-scoped), and the
// HTTP status when the service answered at all.
type RemoteError struct {
	Op        string
	ProjectID int
	Status    int
	Err       error
}

func (e *RemoteError) Error() string {
	if e.ProjectID != 0 {
		return fmt.Sprintf("tracker: %s (project %d): %v", e.Op, e.ProjectID, e.Err)
	}
	return fmt.Sprintf("tracker: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Observer is called after every API request, successful or not.
type Observer func(op string, duration time.Duration, err error)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	observe Observer
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Me returns the person the token authenticates as.
func (c *Client) Me(ctx context.Context) (Person, error) {
	var me Person
	err := c.get(ctx, "me", 0, "/me", nil, &me)
	return me, err
}

// ListProjects returns all projects visible to the token. The fields
// parameter limits the record attributes the service serializes.
func (c *Client) ListProjects(ctx context.Context, fields string) ([]Project, error) {
	query := url.Values{}
	if fields != "" {
		query.Set("fields", fields)
	}
	var projects []Project
	err := c.get(ctx, "list projects", 0, "/projects", query, &projects)
	return projects, err
}

// ListMemberships returns the memberships of one project.
func (c *Client) ListMemberships(ctx context.Context, projectID int) ([]Membership, error) {
	var memberships []Membership
	path := fmt.Sprintf("/projects/%d/memberships", projectID)
	err := c.get(ctx, "list memberships", projectID, path, nil, &memberships)
	return memberships, err
}

// SearchStories returns the stories of one project matching the given
// search filter expression.
func (c *Client) SearchStories(ctx context.Context, projectID int, filter string) ([]Story, error) {
	query := url.Values{}
	query.Set("filter", filter)
	var stories []Story
	path := fmt.Sprintf("/projects/%d/stories", projectID)
	err := c.get(ctx, "search stories", projectID, path, query, &stories)
	return stories, err
}

func (c *Client) get(ctx context.Context, op string, projectID int, path string, query url.Values, target any) error {
	started := time.Now()
	err := c.doGet(ctx, op, projectID, path, query, target)
	if c.observe != nil {
		c.observe(op, time.Since(started), err)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, op string, projectID int, path string, query url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &RemoteError{Op: op, ProjectID: projectID, Err: err}
	}
	req.Header.Set("X-TrackerToken", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Op: op, ProjectID: projectID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RemoteError{
			Op:        op,
			ProjectID: projectID,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &RemoteError{Op: op, ProjectID: projectID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
