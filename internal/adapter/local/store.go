// Package local implements the record store as a JSON array kept under a
// single key of a key-value backend.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"healthtrack/internal/domain"
)

// BaseKey is the key holding the records of the zero scope.
const BaseKey = "healthRecords"

// KV is a byte-oriented key-value backend. Get reports ok=false when the key
// has never been written.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// Key returns the backend key for scope.
func Key(scope domain.Scope) string {
	if scope.IsZero() {
		return BaseKey
	}
	return BaseKey + ":" + strconv.FormatInt(scope.UserID, 10)
}

// Store implements domain.RecordStore on top of a KV. Records keep insertion
// order.
type Store struct {
	kv    KV
	mu    sync.Mutex
	newID func() string
}

// New returns a Store backed by kv.
func New(kv KV) *Store {
	return &Store{kv: kv, newID: uuid.NewString}
}

// LoadAll decodes the scope's array. A missing key is an empty collection.
func (s *Store) LoadAll(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error) {
	recs, err := s.read(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return recs, nil
}

// Insert appends rec with a fresh id, owned by scope.
func (s *Store) Insert(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(ctx, scope)
	if err != nil {
		return domain.HealthRecord{}, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	rec.ID = s.newID()
	rec.UserID = scope.UserID
	if err := s.write(ctx, scope, append(recs, rec)); err != nil {
		return domain.HealthRecord{}, err
	}
	return rec, nil
}

// Update replaces record id in place.
func (s *Store) Update(ctx context.Context, id string, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(ctx, scope)
	if err != nil {
		return domain.HealthRecord{}, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	i := indexOf(recs, id)
	if i < 0 {
		return domain.HealthRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	rec.ID = id
	rec.UserID = recs[i].UserID
	rec.CreatedAt = recs[i].CreatedAt
	recs[i] = rec
	if err := s.write(ctx, scope, recs); err != nil {
		return domain.HealthRecord{}, err
	}
	return rec, nil
}

// DeleteByID filters record id out of the array.
func (s *Store) DeleteByID(ctx context.Context, id string, scope domain.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(ctx, scope)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	i := indexOf(recs, id)
	if i < 0 {
		return nil
	}
	return s.write(ctx, scope, append(recs[:i], recs[i+1:]...))
}

func (s *Store) read(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error) {
	raw, ok, err := s.kv.Get(ctx, Key(scope))
	if err != nil {
		return nil, err
	}
	recs := []domain.HealthRecord{}
	if !ok || len(raw) == 0 {
		return recs, nil
	}
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key(scope), err)
	}
	return recs, nil
}

func (s *Store) write(ctx context.Context, scope domain.Scope, recs []domain.HealthRecord) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	if err := s.kv.Put(ctx, Key(scope), raw); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

func indexOf(recs []domain.HealthRecord, id string) int {
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	return -1
}
