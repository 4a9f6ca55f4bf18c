package app

import (
	"context"
	"errors"
	"sync"

	"healthtrack/internal/domain"
)

// ErrBusy is returned when a mutation for the same record is still in flight.
var ErrBusy = errors.New("a change to this record is already in progress")

// newDraftKey marks the pending slot for an unsaved (insert) draft.
const newDraftKey = "\x00new"

// Collection is the authoritative in-memory list of records for one scope.
// It changes only after the store has confirmed a write.
type Collection struct {
	store domain.RecordStore
	form  *FormState

	mu      sync.Mutex
	scope   domain.Scope
	loaded  bool
	records []domain.HealthRecord
	pending map[string]struct{}
	warning error
}

// NewCollection returns an empty collection persisting through store and
// resetting form after successful submits.
func NewCollection(store domain.RecordStore, form *FormState) *Collection {
	return &Collection{
		store:   store,
		form:    form,
		pending: make(map[string]struct{}),
	}
}

// Form returns the form this collection submits from.
func (c *Collection) Form() *FormState { return c.form }

// Scope returns the scope of the loaded records.
func (c *Collection) Scope() domain.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Records returns a copy of the collection in order.
func (c *Collection) Records() []domain.HealthRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.HealthRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Lookup returns the record with id, if present.
func (c *Collection) Lookup(id string) (domain.HealthRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return domain.HealthRecord{}, false
	}
	return c.records[i], true
}

// Warning returns the last load failure, or nil once a load succeeds.
func (c *Collection) Warning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warning
}

// Load replaces the collection with the records visible to scope. On failure
// the previous records stay in place and the error is kept as a warning.
func (c *Collection) Load(ctx context.Context, scope domain.Scope) error {
	recs, err := c.store.LoadAll(ctx, scope)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if c.scope != scope {
			// Never show stale data that belongs to another scope.
			c.records = nil
			c.scope = scope
		}
		c.warning = err
		return err
	}
	c.scope = scope
	c.loaded = true
	c.records = recs
	c.warning = nil
	return nil
}

// Clear drops every record and resets the form.
func (c *Collection) Clear() {
	c.mu.Lock()
	c.records = nil
	c.scope = domain.Scope{}
	c.loaded = false
	c.warning = nil
	c.mu.Unlock()
	c.form.Reset()
}

// Submit validates the form and inserts or updates the record it describes.
// The form is reset only on success.
func (c *Collection) Submit(ctx context.Context) (domain.HealthRecord, error) {
	draft := c.form.Draft()
	if err := validateDraft(draft); err != nil {
		return domain.HealthRecord{}, err
	}

	key := draft.EditingID
	if key == "" {
		key = newDraftKey
	}
	scope, err := c.begin(key)
	if err != nil {
		return domain.HealthRecord{}, err
	}
	defer c.end(key)

	candidate := draft.Record()
	var saved domain.HealthRecord
	if draft.EditingID != "" {
		saved, err = c.store.Update(ctx, draft.EditingID, candidate, scope)
	} else {
		saved, err = c.store.Insert(ctx, candidate, scope)
	}
	if err != nil {
		return domain.HealthRecord{}, err
	}

	c.mu.Lock()
	if c.scope == scope {
		if i := c.indexOf(saved.ID); i >= 0 {
			c.records[i] = saved
		} else {
			c.records = append(c.records, saved)
		}
	}
	c.mu.Unlock()

	c.form.Reset()
	return saved, nil
}

// Remove deletes the record from the store and then from memory.
func (c *Collection) Remove(ctx context.Context, id string) error {
	scope, err := c.begin(id)
	if err != nil {
		return err
	}
	defer c.end(id)

	if err := c.store.DeleteByID(ctx, id, scope); err != nil {
		return err
	}

	c.mu.Lock()
	if c.scope == scope {
		if i := c.indexOf(id); i >= 0 {
			c.records = append(c.records[:i:i], c.records[i+1:]...)
		}
	}
	c.mu.Unlock()

	if c.form.Draft().EditingID == id {
		c.form.Reset()
	}
	return nil
}

// Edit loads the record with id into the form. It reports false and does
// nothing when the id is not in the collection.
func (c *Collection) Edit(id string) bool {
	rec, ok := c.Lookup(id)
	if !ok {
		return false
	}
	c.form.LoadForEdit(rec)
	return true
}

// Follow keeps the collection in step with gate: it empties on sign-out and
// reloads whenever the signed-in identity changes.
func (c *Collection) Follow(gate *SessionGate) (unsubscribe func()) {
	return gate.Subscribe(func(ctx context.Context, s *domain.Session) {
		if s == nil {
			c.Clear()
			return
		}
		scope := s.Scope()
		c.mu.Lock()
		same := c.loaded && c.scope == scope
		c.mu.Unlock()
		if same {
			return
		}
		c.Clear()
		// A failed load is kept as the collection warning.
		_ = c.Load(ctx, scope)
	})
}

func (c *Collection) begin(key string) (domain.Scope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[key]; busy {
		return domain.Scope{}, ErrBusy
	}
	c.pending[key] = struct{}{}
	return c.scope, nil
}

func (c *Collection) end(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

func (c *Collection) indexOf(id string) int {
	for i, r := range c.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
