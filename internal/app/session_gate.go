package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"healthtrack/internal/domain"
)

// ErrNoSession is returned for record operations attempted while signed out.
var ErrNoSession = errors.New("not signed in")

// AuthError wraps a failure from the authentication collaborator. The
// session held by the gate is unchanged when one is returned.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// SessionListener is notified whenever the gate's session changes. A nil
// session means signed out.
type SessionListener func(ctx context.Context, s *domain.Session)

// SessionGate tracks the current authenticated session and fans out changes.
type SessionGate struct {
	auth Authenticator

	mu        sync.Mutex
	session   *domain.Session
	listeners map[int]SessionListener
	nextID    int
}

// NewSessionGate returns a signed-out gate backed by auth.
func NewSessionGate(auth Authenticator) *SessionGate {
	return &SessionGate{auth: auth, listeners: make(map[int]SessionListener)}
}

// Current returns a copy of the active session, or nil.
func (g *SessionGate) Current() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// Subscribe registers fn for session changes and returns its unsubscribe func.
func (g *SessionGate) Subscribe(fn SessionListener) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			g.mu.Unlock()
		})
	}
}

// SignIn authenticates and installs the resulting session.
func (g *SessionGate) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	s, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, &AuthError{Op: "signin", Err: err}
	}
	g.set(ctx, s)
	return s, nil
}

// SignUp registers the user and then signs in with the same credentials. A
// failure of the second step is reported with Op "signin".
func (g *SessionGate) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := g.auth.SignUp(ctx, email, password); err != nil {
		return nil, &AuthError{Op: "signup", Err: err}
	}
	return g.SignIn(ctx, email, password)
}

// SignOut ends the session and notifies listeners so they drop user data.
func (g *SessionGate) SignOut(ctx context.Context) error {
	current := g.Current()
	if current == nil {
		return nil
	}
	if err := g.auth.SignOut(ctx, current.Token); err != nil {
		return &AuthError{Op: "signout", Err: err}
	}
	g.set(ctx, nil)
	return nil
}

// Refresh rotates the session token.
func (g *SessionGate) Refresh(ctx context.Context) (*domain.Session, error) {
	current := g.Current()
	if current == nil {
		return nil, &AuthError{Op: "refresh", Err: ErrNoSession}
	}
	s, err := g.auth.Refresh(ctx, current.Token)
	if err != nil {
		return nil, &AuthError{Op: "refresh", Err: err}
	}
	g.set(ctx, s)
	return s, nil
}

// Resume restores a session from a token issued earlier.
func (g *SessionGate) Resume(ctx context.Context, token string) (*domain.Session, error) {
	s, err := g.auth.Resume(ctx, token)
	if err != nil {
		return nil, &AuthError{Op: "resume", Err: err}
	}
	s.Token = token
	g.set(ctx, s)
	return s, nil
}

// Adopt installs a session obtained outside the gate, such as an SSO login.
func (g *SessionGate) Adopt(ctx context.Context, s *domain.Session) {
	g.set(ctx, s)
}

func (g *SessionGate) set(ctx context.Context, s *domain.Session) {
	g.mu.Lock()
	g.session = s
	listeners := make([]SessionListener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	for _, fn := range listeners {
		var cp *domain.Session
		if s != nil {
			c := *s
			cp = &c
		}
		fn(ctx, cp)
	}
}
