package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("http://example.test", ""); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if _, err := NewClient("http://example.test", "   "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken for blank token, got %v", err)
	}
}

func TestListProjectsSendsTokenAndFields(t *testing.T) {
	var gotToken, gotFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotToken = r.Header.Get("X-TrackerToken")
		gotFields = r.URL.Query().Get("fields")
		w.Write([]byte(`[{"id":2,"name":"Beta","current_velocity":10},{"id":1,"name":"Alpha","current_velocity":7}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "secret-token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	projects, err := client.ListProjects(context.Background(), "name,current_velocity")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if gotToken != "secret-token" {
		t.Errorf("token header = %q", gotToken)
	}
	if gotFields != "name,current_velocity" {
		t.Errorf("fields param = %q", gotFields)
	}
	if len(projects) != 2 || projects[0].Name != "Beta" || projects[1].CurrentVelocity != 7 {
		t.Errorf("unexpected projects: %+v", projects)
	}
}

func TestSearchStoriesEncodesFilter(t *testing.T) {
	var gotFilter string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/42/stories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(`[{"id":7,"project_id":42,"name":"Fix login","story_type":"bug","current_state":"started","estimate":3}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "tok")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	stories, err := client.SearchStories(context.Background(), 42, "state:started -type:release")
	if err != nil {
		t.Fatalf("SearchStories: %v", err)
	}
	if gotFilter != "state:started -type:release" {
		t.Errorf("filter = %q", gotFilter)
	}
	if len(stories) != 1 || stories[0].ID != 7 || *stories[0].Estimate != 3 {
		t.Errorf("unexpected stories: %+v", stories)
	}
}

func TestListMembershipsUnwrapsPeople(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/9/memberships" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"person":{"id":1,"name":"Jane Doe","initials":"jd"}}]`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "tok")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	memberships, err := client.ListMemberships(context.Background(), 9)
	if err != nil {
		t.Fatalf("ListMemberships: %v", err)
	}
	if len(memberships) != 1 || memberships[0].Person.Initials != "jd" {
		t.Errorf("unexpected memberships: %+v", memberships)
	}
}

func TestRemoteErrorCarriesOpAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "bad-token")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.SearchStories(context.Background(), 5, "state:started")
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Op != "search stories" || remoteErr.ProjectID != 5 || remoteErr.Status != http.StatusUnauthorized {
		t.Errorf("unexpected error context: %+v", remoteErr)
	}
}

func TestObserverSeesEveryCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1,"name":"Jane Doe","initials":"jd"}`))
	}))
	defer server.Close()

	var ops []string
	observer := func(op string, d time.Duration, err error) {
		ops = append(ops, op)
		if err != nil {
			t.Errorf("unexpected observed error: %v", err)
		}
	}

	client, err := NewClient(server.URL, "tok", WithObserver(observer))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Me(context.Background()); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if len(ops) != 1 || ops[0] != "me" {
		t.Errorf("observed ops = %v", ops)
	}
}
