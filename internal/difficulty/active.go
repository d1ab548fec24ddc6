package difficulty

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Persister stores configurations. SaveActive must deactivate the previous
// active record and insert c as the new active one atomically, returning the
// stored copy.
type Persister interface {
	SaveActive(ctx context.Context, c Configuration) (Configuration, error)
}

// Active owns the configuration currently in force. Reads are lock-free
// snapshots; replacements are serialized and all-or-nothing.
type Active struct {
	current atomic.Pointer[Configuration]
	mu      sync.Mutex
	store   Persister
	now     func() time.Time
}

// NewActive creates an Active seeded with initial. store may be nil, in
// which case replacements only live in memory.
func NewActive(initial Configuration, store Persister) *Active {
	a := &Active{store: store, now: time.Now}
	a.current.Store(&initial)
	return a
}

// Current returns a copy of the active configuration.
func (a *Active) Current() Configuration {
	return *a.current.Load()
}

// Replace validates candidate and, when valid, persists it and makes it the
// active configuration. On any failure the previous configuration remains
// active and the error is returned (a *ValidationError for rule violations).
func (a *Active) Replace(ctx context.Context, candidate Configuration) (Configuration, error) {
	if err := Validate(candidate); err != nil {
		return a.Current(), err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if candidate.Name == "" {
		candidate.Name = a.current.Load().Name
	}
	candidate.UpdatedAt = a.now().UTC()

	if a.store != nil {
		saved, err := a.store.SaveActive(ctx, candidate)
		if err != nil {
			return a.Current(), fmt.Errorf("persist configuration: %w", err)
		}
		candidate = saved
	}

	a.current.Store(&candidate)
	return candidate, nil
}
