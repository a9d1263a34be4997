package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/strrl/health-sessions/pkg/models"
)

// Acknowledger delivers each failure occurrence to its notifier at most
// once, no matter how often the same outcome is observed. Failures are told
// apart by occurrence token only, never by error content.
type Acknowledger struct {
	mu       sync.Mutex
	store    TokenStore
	notifier Notifier
	lastSeen uuid.UUID
}

// NewAcknowledger restores the last seen token from store. A store with no
// token yields uuid.Nil, which no real occurrence token equals.
func NewAcknowledger(store TokenStore, notifier Notifier) (*Acknowledger, error) {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	last, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("restore acknowledged token: %w", err)
	}
	return &Acknowledger{
		store:    store,
		notifier: notifier,
		lastSeen: last,
	}, nil
}

// Pending reports whether o is a failure not yet acknowledged
func (a *Acknowledger) Pending(o models.Outcome) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingLocked(o)
}

func (a *Acknowledger) pendingLocked(o models.Outcome) bool {
	return o.IsFailure() && o.OccurrenceID != a.lastSeen
}

// LastSeen returns the last acknowledged occurrence token
func (a *Acknowledger) LastSeen() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSeen
}

// Observe notifies for a new failure occurrence and records its token.
// It reports whether a notification was sent. The returned error is from
// persisting the token; the in-memory token is updated regardless so the
// same occurrence is not notified again in this process.
func (a *Acknowledger) Observe(ctx context.Context, o models.Outcome) (bool, error) {
	a.mu.Lock()
	if !a.pendingLocked(o) {
		a.mu.Unlock()
		return false, nil
	}
	a.lastSeen = o.OccurrenceID
	a.mu.Unlock()

	if a.notifier != nil {
		a.notifier.Notify(ctx, o.Err)
	}

	if err := a.store.Save(o.OccurrenceID); err != nil {
		return true, fmt.Errorf("persist acknowledged token: %w", err)
	}
	return true, nil
}
