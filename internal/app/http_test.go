package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iterboard/internal/board"
	"iterboard/internal/config"
	"iterboard/internal/session"
	"iterboard/internal/tracker"
)

type fakeTokens struct {
	tokens map[string]string
	saves  int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]string)}
}

func (f *fakeTokens) SaveToken(ctx context.Context, sessionID, token string) error {
	f.saves++
	f.tokens[sessionID] = token
	return nil
}

func (f *fakeTokens) LookupToken(ctx context.Context, sessionID string) (string, error) {
	token, ok := f.tokens[sessionID]
	if !ok {
		return "", session.ErrNoSession
	}
	return token, nil
}

func (f *fakeTokens) DeleteToken(ctx context.Context, sessionID string) error {
	delete(f.tokens, sessionID)
	return nil
}

// boardRemote feeds the board engine a tiny fixed tracker.
type boardRemote struct {
	err error
}

func (b boardRemote) Me(ctx context.Context) (tracker.Person, error) {
	return tracker.Person{ID: 1, Name: "Jane Doe", Initials: "jd"}, nil
}

func (b boardRemote) ListProjects(ctx context.Context, fields string) ([]tracker.Project, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []tracker.Project{{ID: 100, Name: "Billing", CurrentVelocity: 10}}, nil
}

func (b boardRemote) ListMemberships(ctx context.Context, projectID int) ([]tracker.Membership, error) {
	return []tracker.Membership{{Person: tracker.Person{ID: 1, Name: "Jane Doe", Initials: "jd"}}}, nil
}

func (b boardRemote) SearchStories(ctx context.Context, projectID int, filter string) ([]tracker.Story, error) {
	estimate := 3
	return []tracker.Story{{
		ID: 11, ProjectID: 100, Name: "Fix login", StoryType: tracker.TypeBug,
		CurrentState: tracker.StateStarted, Estimate: &estimate, OwnerIDs: []int{1},
	}}, nil
}

type testServer struct {
	*HTTPServer
	tokens    *fakeTokens
	engines   *session.EngineCache
	newCalls  int
	remoteErr error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens := newFakeTokens()
	engines := session.NewEngineCache(12 * time.Hour)
	server := NewHTTPServer(config.Load(), tokens, engines)

	ts := &testServer{HTTPServer: server, tokens: tokens, engines: engines}
	server.newEngine = func(token string) (*board.Engine, error) {
		ts.newCalls++
		return board.New(boardRemote{err: ts.remoteErr})
	}
	return ts
}

func request(method, target, sessionID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}
	return req
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/healthz", ""))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok":true`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestIndexWithoutTokenShowsForm(t *testing.T) {
	ts := newTestServer(t)
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/", "sess-1"))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `name="api_token"`) {
		t.Error("expected token form")
	}
}

func TestIndexWithTokenRedirectsToView(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "tok"

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/", "sess-1"))

	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/view" {
		t.Errorf("status = %d, location = %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestTokenParamIsCapturedAndStripped(t *testing.T) {
	ts := newTestServer(t)

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view?api_token=secret&my_stories_only=true", "sess-1"))

	if ts.tokens.tokens["sess-1"] != "secret" {
		t.Errorf("stored token = %q", ts.tokens.tokens["sess-1"])
	}
	location := rr.Header().Get("Location")
	if rr.Code != http.StatusFound || strings.Contains(location, "api_token") {
		t.Errorf("status = %d, location = %q", rr.Code, location)
	}
	if !strings.Contains(location, "my_stories_only") {
		t.Errorf("other params should survive: %q", location)
	}
}

func TestSessionCookieIsIssued(t *testing.T) {
	ts := newTestServer(t)
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/", ""))

	cookies := rr.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookie && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Errorf("no session cookie in %v", cookies)
	}
}

func TestViewWithoutTokenRedirectsHome(t *testing.T) {
	ts := newTestServer(t)
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view", "sess-1"))

	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
		t.Errorf("status = %d, location = %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestViewRendersBoard(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "tok"

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view", "sess-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Planned", "Started", "Ready for CR", "Ready for QA", "Delivered", "Released", "Fix login"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestViewReusesCachedEngine(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "tok"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view", "sess-1"))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
	if ts.newCalls != 1 {
		t.Errorf("engine built %d times, want 1", ts.newCalls)
	}
}

func TestViewAppliesFilterParams(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "tok"

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view?project_id=100&my_stories_only=true&show_last_week=true", "sess-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	engine, ok := ts.engines.Get("sess-1")
	if !ok {
		t.Fatal("engine not cached")
	}
	if engine.SelectedProjectID != 100 || !engine.MyStoriesOnly || !engine.ShowLastWeek {
		t.Errorf("filters = %d %v %v", engine.SelectedProjectID, engine.MyStoriesOnly, engine.ShowLastWeek)
	}
}

func TestRefreshInvalidatesEngine(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "tok"

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view", "sess-1"))
	if _, ok := ts.engines.Get("sess-1"); !ok {
		t.Fatal("engine not cached after view")
	}

	rr = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/refresh", "sess-1"))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/view" {
		t.Errorf("status = %d, location = %q", rr.Code, rr.Header().Get("Location"))
	}
	if _, ok := ts.engines.Get("sess-1"); ok {
		t.Error("engine still cached after refresh")
	}
}

func TestRejectedTokenClearsSession(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "bad"
	ts.remoteErr = &tracker.RemoteError{Op: "list projects", Status: http.StatusUnauthorized, Err: errors.New("unexpected status 401")}

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view", "sess-1"))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rr.Code)
	}
	if _, ok := ts.tokens.tokens["sess-1"]; ok {
		t.Error("rejected token should be deleted")
	}
}

func TestUpstreamOutageKeepsSession(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens.tokens["sess-1"] = "tok"
	ts.remoteErr = &tracker.RemoteError{Op: "list projects", Err: context.DeadlineExceeded}

	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/view", "sess-1"))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rr.Code)
	}
	if _, ok := ts.tokens.tokens["sess-1"]; !ok {
		t.Error("token should survive an upstream outage")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	ts := newTestServer(t)
	rr := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rr, request(http.MethodGet, "/nope", "sess-1"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}
