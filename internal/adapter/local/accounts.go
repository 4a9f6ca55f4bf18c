package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"healthtrack/internal/domain"
)

// Keys holding the account documents next to the record arrays.
const (
	UsersKey    = "users"
	SessionsKey = "sessions"
)

// Accounts implements domain.UserRepository on a KV. User ids survive
// restarts and are never reused, since record keys are derived from them.
type Accounts struct {
	kv KV
	mu sync.Mutex
}

var (
	_ domain.UserRepository    = (*Accounts)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

type userDoc struct {
	// NextID only grows; ids are never reused.
	NextID int64        `json:"nextId"`
	Users  []storedUser `json:"users"`
}

type storedUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type storedSession struct {
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAccounts returns the account repository stored in kv.
func NewAccounts(kv KV) *Accounts {
	return &Accounts{kv: kv}
}

// GetByEmail returns the user with email, or nil.
func (a *Accounts) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	doc, err := a.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u.Email == email {
			return u.toDomain(), nil
		}
	}
	return nil, nil
}

// GetByID returns the user with id, or nil.
func (a *Accounts) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	doc, err := a.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u.ID == id {
			return u.toDomain(), nil
		}
	}
	return nil, nil
}

// Create adds a user under the next unused id. Ids whose record key already
// holds data, such as records left by accounts that were never persisted,
// are skipped.
func (a *Accounts) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc, err := a.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u.Email == email {
			return nil, errors.New("user already exists")
		}
		doc.NextID = max(doc.NextID, u.ID)
	}
	for {
		doc.NextID++
		_, taken, err := a.kv.Get(ctx, Key(domain.Scope{UserID: doc.NextID}))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", Key(domain.Scope{UserID: doc.NextID}), err)
		}
		if !taken {
			break
		}
	}
	u := storedUser{ID: doc.NextID, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	doc.Users = append(doc.Users, u)
	if err := a.put(ctx, UsersKey, doc); err != nil {
		return nil, err
	}
	return u.toDomain(), nil
}

// Sessions returns the session repository sharing a's backend.
func (a *Accounts) Sessions() *SessionRepo {
	return &SessionRepo{a: a}
}

func (a *Accounts) users(ctx context.Context) (userDoc, error) {
	var doc userDoc
	err := a.get(ctx, UsersKey, &doc)
	return doc, err
}

func (a *Accounts) sessions(ctx context.Context) (map[string]storedSession, error) {
	m := map[string]storedSession{}
	if err := a.get(ctx, SessionsKey, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *Accounts) get(ctx context.Context, key string, v any) error {
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (a *Accounts) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := a.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (u storedUser) toDomain() *domain.User {
	return &domain.User{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
}

// SessionRepo implements domain.SessionRepository on the Accounts backend.
type SessionRepo struct {
	a *Accounts
}

// Create stores a session for userID.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()

	m, err := r.a.sessions(ctx)
	if err != nil {
		return err
	}
	m[token] = storedSession{UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now().UTC()}
	return r.a.put(ctx, SessionsKey, m)
}

// GetByToken returns the session for token, or nil.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	m, err := r.a.sessions(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := m[token]
	if !ok {
		return nil, nil
	}
	return &domain.Session{Token: token, UserID: s.UserID, ExpiresAt: s.ExpiresAt, CreatedAt: s.CreatedAt}, nil
}

// Delete removes token's session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()

	m, err := r.a.sessions(ctx)
	if err != nil {
		return err
	}
	if _, ok := m[token]; !ok {
		return nil
	}
	delete(m, token)
	return r.a.put(ctx, SessionsKey, m)
}

// DeleteExpired drops every session past its expiry.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.a.mu.Lock()
	defer r.a.mu.Unlock()

	m, err := r.a.sessions(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	n := len(m)
	for token, s := range m {
		if now.After(s.ExpiresAt) {
			delete(m, token)
		}
	}
	if len(m) == n {
		return nil
	}
	return r.a.put(ctx, SessionsKey, m)
}
