package app

import (
	"context"
	"time"

	"healthtrack/internal/domain"
)

// Tracker is one client's view of the system: a session gate, the form and
// the record collection that follows the gate.
type Tracker struct {
	Gate    *SessionGate
	Form    *FormState
	Records *Collection

	unfollow func()
}

// NewTracker wires a signed-out tracker. now supplies the form's "today".
func NewTracker(auth Authenticator, store domain.RecordStore, now func() time.Time) *Tracker {
	gate := NewSessionGate(auth)
	form := NewFormState(now)
	records := NewCollection(store, form)
	t := &Tracker{Gate: gate, Form: form, Records: records}
	t.unfollow = records.Follow(gate)
	return t
}

// Close detaches the collection from the gate.
func (t *Tracker) Close() {
	if t.unfollow != nil {
		t.unfollow()
	}
}

// Submit persists the current draft for the signed-in user.
func (t *Tracker) Submit(ctx context.Context) (domain.HealthRecord, error) {
	if t.Gate.Current() == nil {
		return domain.HealthRecord{}, ErrNoSession
	}
	return t.Records.Submit(ctx)
}

// Remove deletes a record of the signed-in user.
func (t *Tracker) Remove(ctx context.Context, id string) error {
	if t.Gate.Current() == nil {
		return ErrNoSession
	}
	return t.Records.Remove(ctx, id)
}

// Edit loads a record into the form.
func (t *Tracker) Edit(id string) (bool, error) {
	if t.Gate.Current() == nil {
		return false, ErrNoSession
	}
	return t.Records.Edit(id), nil
}

// Reload re-reads the signed-in user's records.
func (t *Tracker) Reload(ctx context.Context) error {
	s := t.Gate.Current()
	if s == nil {
		return ErrNoSession
	}
	return t.Records.Load(ctx, s.Scope())
}

// Chart projects the collection with weight in unit.
func (t *Tracker) Chart(unit string) (Chart, error) {
	if t.Gate.Current() == nil {
		return Chart{}, ErrNoSession
	}
	return ProjectIn(t.Records.Records(), unit)
}
