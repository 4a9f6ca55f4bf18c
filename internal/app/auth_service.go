// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"healthtrack/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates a sign-up for an email that is already registered.
	ErrUserExists = errors.New("user already registered")
)

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

const minPasswordLen = 6

// Authenticator is the port the SessionGate delegates to.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, token string) error
	Resume(ctx context.Context, token string) (*domain.Session, error)
	Refresh(ctx context.Context, token string) (*domain.Session, error)
}

// AuthService handles authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

var _ Authenticator = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
	}
}

// WithSessionTTL overrides the session lifetime.
func (s *AuthService) WithSessionTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// SignUp registers a new user with a bcrypt password hash.
func (s *AuthService) SignUp(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("a valid email is required")
	}
	if len(password) < minPasswordLen {
		return errors.New("password must be at least 6 characters")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.users.Create(ctx, email, string(hash))
	return err
}

// SignIn authenticates a user and creates a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		// SSO-provisioned accounts have no password.
		return nil, ErrInvalidCredentials
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(ctx, user)
}

// SignOut invalidates a session.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resume looks up a live session by token.
func (s *AuthService) Resume(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}
	session.Email = user.Email
	return session, nil
}

// Refresh replaces a live session with a new token and a fresh expiry.
func (s *AuthService) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	current, err := s.Resume(ctx, token)
	if err != nil {
		return nil, err
	}
	next, err := s.openSession(ctx, &domain.User{ID: current.UserID, Email: current.Email})
	if err != nil {
		return nil, err
	}
	_ = s.sessions.Delete(ctx, token)
	return next, nil
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, email string) (*domain.Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Auto-provision with an empty hash; these users sign in via SSO only.
		user, err = s.users.Create(ctx, email, "")
		if err != nil {
			// Lost a race on the unique constraint.
			user, err = s.users.GetByEmail(ctx, email)
			if err != nil || user == nil {
				return nil, ErrUserNotFound
			}
		}
	}
	return s.openSession(ctx, user)
}

// PurgeExpired removes sessions past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	if err := s.sessions.Create(ctx, user.ID, token, expiresAt); err != nil {
		return nil, err
	}

	return &domain.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
