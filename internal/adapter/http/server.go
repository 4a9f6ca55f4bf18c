package adapthttp

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

const (
	sessionCookie    = "session"
	remoteUserPrefix = "remote-user:"
)

// Server is the driving HTTP adapter. Each signed-in browser session owns an
// app.Tracker, keyed by its session token.
type Server struct {
	authSvc    *app.AuthService
	store      domain.RecordStore
	webDir     string
	now        func() time.Time
	oidcConfig OIDCConfig
	metrics    http.Handler
	forwarded  bool

	mu       sync.Mutex
	trackers map[string]*app.Tracker
}

// Option configures a Server.
type Option func(*Server)

// WithOIDC enables SSO sign-in.
func WithOIDC(cfg OIDCConfig) Option {
	return func(s *Server) { s.oidcConfig = cfg }
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithClock overrides the time source used for form defaults and session
// expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithForwardAuth trusts the Remote-User header set by an authenticating
// reverse proxy.
func WithForwardAuth() Option {
	return func(s *Server) { s.forwarded = true }
}

// New creates a Server wired to the given services.
func New(authSvc *app.AuthService, store domain.RecordStore, webDir string, opts ...Option) *Server {
	s := &Server{
		authSvc:  authSvc,
		store:    store,
		webDir:   webDir,
		now:      time.Now,
		trackers: make(map[string]*app.Tracker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/config", s.handleConfig)
	api.HandleFunc("/auth/signin", s.handleSignIn)
	api.HandleFunc("/auth/signup", s.handleSignUp)
	api.HandleFunc("/auth/signout", s.handleSignOut)
	api.HandleFunc("/auth/session", s.handleSession)
	api.HandleFunc("/auth/refresh", s.handleRefresh)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	api.Handle("/records", s.withTracker(s.handleRecords))
	api.Handle("/records/{id}", s.withTracker(s.handleRecord))
	api.Handle("/records/{id}/edit", s.withTracker(s.handleRecordEdit))
	api.Handle("/form", s.withTracker(s.handleForm))
	api.Handle("/charts", s.withTracker(s.handleCharts))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.metrics != nil {
		root.Handle("/metrics", s.metrics)
	}
	root.Handle("/", spaFromDisk(s.webDir))

	return withNoCache(s.loggingMiddleware(root))
}

// Sweep drops trackers whose sessions have expired.
func (s *Server) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, t := range s.trackers {
		if cur := t.Gate.Current(); cur == nil || !cur.ExpiresAt.After(now) {
			delete(s.trackers, token)
			t.Close()
			n++
		}
	}
	return n
}

func (s *Server) newTracker() *app.Tracker {
	return app.NewTracker(s.authSvc, s.store, s.now)
}

func (s *Server) lookup(token string) (*app.Tracker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[token]
	return t, ok
}

// register stores t under token, returning the tracker already registered
// there if another request won the race.
func (s *Server) register(token string, t *app.Tracker) *app.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.trackers[token]; ok && existing != t {
		t.Close()
		return existing
	}
	s.trackers[token] = t
	return t
}

func (s *Server) forget(token string) {
	s.mu.Lock()
	t, ok := s.trackers[token]
	delete(s.trackers, token)
	s.mu.Unlock()
	if ok {
		t.Close()
	}
}

// rekey moves t to newToken after a refresh. Forwarded trackers stay keyed
// by the proxy identity.
func (s *Server) rekey(t *app.Tracker, newToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, existing := range s.trackers {
		if existing != t {
			continue
		}
		if strings.HasPrefix(key, remoteUserPrefix) {
			return
		}
		delete(s.trackers, key)
	}
	s.trackers[newToken] = t
}

// trackerFor resolves the request's tracker from its session cookie,
// resuming a persisted session when this process has not seen it yet.
func (s *Server) trackerFor(ctx context.Context, r *http.Request) (*app.Tracker, error) {
	if s.forwarded {
		if email := r.Header.Get("Remote-User"); email != "" {
			return s.forwardedTracker(ctx, email)
		}
	}

	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, app.ErrNoSession
	}
	token := cookie.Value

	if t, ok := s.lookup(token); ok {
		cur := t.Gate.Current()
		if cur != nil && cur.ExpiresAt.After(s.now()) {
			return t, nil
		}
		s.forget(token)
		return nil, app.ErrSessionExpired
	}

	t := s.newTracker()
	if _, err := t.Gate.Resume(ctx, token); err != nil {
		t.Close()
		return nil, err
	}
	return s.register(token, t), nil
}

func (s *Server) forwardedTracker(ctx context.Context, email string) (*app.Tracker, error) {
	key := remoteUserPrefix + email
	if t, ok := s.lookup(key); ok {
		if cur := t.Gate.Current(); cur != nil && cur.ExpiresAt.After(s.now()) {
			return t, nil
		}
		s.forget(key)
	}
	sess, err := s.authSvc.LoginWithUser(ctx, email)
	if err != nil {
		return nil, &app.AuthError{Op: "forward-auth", Err: err}
	}
	t := s.newTracker()
	t.Gate.Adopt(ctx, sess)
	return s.register(key, t), nil
}
