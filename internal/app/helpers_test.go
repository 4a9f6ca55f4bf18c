package app_test

import (
	"context"
	"time"

	"healthtrack/internal/adapter/memory"
	"healthtrack/internal/domain"
)

// mockStore defaults to an in-memory store; set a func field to override
// one operation (function-fields pattern).
type mockStore struct {
	*memory.DB
	loadFn   func(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error)
	insertFn func(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error)
	updateFn func(ctx context.Context, id string, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error)
	deleteFn func(ctx context.Context, id string, scope domain.Scope) error
}

func newMockStore() *mockStore {
	return &mockStore{DB: memory.New()}
}

func (m *mockStore) LoadAll(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, scope)
	}
	return m.DB.LoadAll(ctx, scope)
}

func (m *mockStore) Insert(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec, scope)
	}
	return m.DB.Insert(ctx, rec, scope)
}

func (m *mockStore) Update(ctx context.Context, id string, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, rec, scope)
	}
	return m.DB.Update(ctx, id, rec, scope)
}

func (m *mockStore) DeleteByID(ctx context.Context, id string, scope domain.Scope) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, scope)
	}
	return m.DB.DeleteByID(ctx, id, scope)
}

var fixedNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// fillScenario sets the form to the canonical example entry.
func fillScenario(set func(field string, raw string) error) error {
	values := [][2]string{
		{"date", "2024-01-01"},
		{"weight", "70"},
		{"sleep", "7"},
		{"sport", "30"},
		{"water", "2"},
		{"foodType", "balanced"},
		{"energy", "60"},
		{"mood", "70"},
		{"stress", "40"},
	}
	for _, kv := range values {
		if err := set(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}
