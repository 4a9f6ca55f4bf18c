// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"healthtrack/internal/domain"

	"github.com/google/uuid"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	records  []domain.HealthRecord
	users    []*domain.User
	sessions map[string]*domain.Session

	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.RecordStore = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- RecordStore ---

// LoadAll returns the scope's records ordered by date, ties in insertion order.
func (db *DB) LoadAll(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.HealthRecord, 0, len(db.records))
	for _, r := range db.records {
		if r.UserID == scope.UserID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// Insert stores a record under a fresh id.
func (db *DB) Insert(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.UserID = scope.UserID
	rec.CreatedAt = time.Now().UTC()
	db.records = append(db.records, rec)
	return rec, nil
}

// Update replaces the scope's record with id.
func (db *DB) Update(ctx context.Context, id string, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, r := range db.records {
		if r.ID == id && r.UserID == scope.UserID {
			rec.ID = id
			rec.UserID = r.UserID
			rec.CreatedAt = r.CreatedAt
			db.records[i] = rec
			return rec, nil
		}
	}
	return domain.HealthRecord{}, fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
}

// DeleteByID removes a record; absent ids are ignored.
func (db *DB) DeleteByID(ctx context.Context, id string, scope domain.Scope) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, r := range db.records {
		if r.ID == id && r.UserID == scope.UserID {
			db.records = append(db.records[:i], db.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// --- UserRepository ---

// GetByEmail retrieves a user by email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
