// Package app is the HTTP controller for the iteration board: it captures
// the tracker API token into the session, keeps one board engine alive
// per session, and renders the computed view.
package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iterboard/internal/board"
	"iterboard/internal/config"
	"iterboard/internal/session"
	"iterboard/internal/tracker"
	"iterboard/internal/util"
)

const sessionCookie = "iterboard_session"

// TokenStore is the session-token surface of session.RedisStore.
type TokenStore interface {
	SaveToken(ctx context.Context, sessionID, token string) error
	LookupToken(ctx context.Context, sessionID string) (string, error)
	DeleteToken(ctx context.Context, sessionID string) error
}

type HTTPServer struct {
	cfg      config.Config
	sessions TokenStore
	engines  *session.EngineCache

	// newEngine builds a board engine for a token. Tests swap it out.
	newEngine func(token string) (*board.Engine, error)
}

func NewHTTPServer(cfg config.Config, sessions TokenStore, engines *session.EngineCache) *HTTPServer {
	s := &HTTPServer{cfg: cfg, sessions: sessions, engines: engines}
	s.newEngine = s.buildEngine
	return s
}

func (s *HTTPServer) buildEngine(token string) (*board.Engine, error) {
	client, err := tracker.NewClient(s.cfg.TrackerURL, token, tracker.WithObserver(observeTracker))
	if err != nil {
		return nil, err
	}
	return board.New(client,
		board.WithWeekStart(s.cfg.WeekStart),
		board.WithLinkHost(s.cfg.LinkHost),
	)
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		switch r.URL.Path {
		case "/healthz":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true}`))
			return
		case "/metrics":
			promhttp.Handler().ServeHTTP(w, r)
			return
		}
	}

	sessionID := s.ensureSession(w, r)

	// Any page may arrive with a fresh token; capture it and strip it
	// from the URL so it never sits in the address bar or logs.
	if token := r.URL.Query().Get("api_token"); token != "" {
		if err := s.sessions.SaveToken(r.Context(), sessionID, token); err != nil {
			log.Printf("save token: %v", err)
			s.renderIndex(w, http.StatusInternalServerError, indexPage{Error: "Could not store your session. Try again."})
			return
		}
		s.engines.Invalidate(sessionID)
		query := r.URL.Query()
		query.Del("api_token")
		http.Redirect(w, r, pathWithQuery("/view", query), http.StatusFound)
		return
	}

	switch r.URL.Path {
	case "/":
		if _, err := s.sessions.LookupToken(r.Context(), sessionID); err == nil {
			http.Redirect(w, r, "/view", http.StatusFound)
			return
		}
		s.renderIndex(w, http.StatusOK, indexPage{})
	case "/view":
		s.handleView(w, r, sessionID)
	case "/refresh":
		s.engines.Invalidate(sessionID)
		http.Redirect(w, r, "/view", http.StatusFound)
	default:
		http.NotFound(w, r)
	}
}

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	token, err := s.sessions.LookupToken(ctx, sessionID)
	if errors.Is(err, session.ErrNoSession) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		log.Printf("lookup token: %v", err)
		s.renderIndex(w, http.StatusInternalServerError, indexPage{Error: "Session lookup failed. Try again."})
		return
	}

	engine, ok := s.engines.Get(sessionID)
	if !ok {
		engine, err = s.newEngine(token)
		if err != nil {
			s.handleEngineError(w, r, sessionID, err)
			return
		}
		s.engines.Put(sessionID, engine)
	}

	query := r.URL.Query()
	engine.SelectedProjectID, _ = strconv.Atoi(query.Get("project_id"))
	engine.MyStoriesOnly = query.Has("my_stories_only")
	engine.ShowLastWeek = query.Has("show_last_week")

	view, err := engine.BuildView(ctx)
	if err != nil {
		s.handleEngineError(w, r, sessionID, err)
		return
	}

	s.renderBoard(w, s.boardPageFor(view, query))
}

// handleEngineError distinguishes a dead token from a flaky upstream: the
// former sends the user back to the token form, the latter keeps the
// session and reports the failure.
func (s *HTTPServer) handleEngineError(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	log.Printf("board engine: %v", err)
	s.engines.Invalidate(sessionID)

	var authErr *board.AuthenticationError
	var remoteErr *tracker.RemoteError
	switch {
	case errors.As(err, &authErr), errors.Is(err, tracker.ErrNoToken):
		_ = s.sessions.DeleteToken(r.Context(), sessionID)
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.As(err, &remoteErr) && (remoteErr.Status == http.StatusUnauthorized || remoteErr.Status == http.StatusForbidden):
		_ = s.sessions.DeleteToken(r.Context(), sessionID)
		s.renderIndex(w, http.StatusUnauthorized, indexPage{Error: "The tracker rejected your token. Enter a fresh one."})
	default:
		s.renderIndex(w, http.StatusBadGateway, indexPage{Error: "The tracker is not answering. Try refreshing in a moment."})
	}
}

func (s *HTTPServer) boardPageFor(view *board.ViewModel, query url.Values) boardPage {
	page := boardPage{
		View:          view,
		AllPath:       pathWithQuery("/view", without(query, "project_id")),
		MyStoriesPath: pathWithQuery("/view", toggled(query, "my_stories_only")),
		LastWeekPath:  pathWithQuery("/view", toggled(query, "show_last_week")),
		RefreshPath:   "/refresh",
	}
	for _, project := range view.Projects {
		selected := without(query, "project_id")
		selected.Set("project_id", strconv.Itoa(project.ID))
		page.ProjectLinks = append(page.ProjectLinks, projectLink{
			Project:  project,
			Path:     pathWithQuery("/view", selected),
			Selected: view.SelectedProjectID == project.ID,
			Estimate: view.PerProjectEstimate[project.ID],
		})
	}
	return page
}

func (s *HTTPServer) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sessionID := util.NewID("sess")
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

func pathWithQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func without(query url.Values, param string) url.Values {
	copied := url.Values{}
	for key, values := range query {
		if key != param {
			copied[key] = values
		}
	}
	return copied
}

func toggled(query url.Values, param string) url.Values {
	copied := without(query, param)
	if !query.Has(param) {
		copied.Set(param, "true")
	}
	return copied
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		httpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(writer.status)).Inc()
		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
