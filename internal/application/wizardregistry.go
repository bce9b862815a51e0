package application

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type registryEntry struct {
	wizard  *Wizard
	touched time.Time
}

// WizardRegistry holds the live wizards of every connected client, keyed by
// a random session ID. Each wizard guards its own state; the registry only
// guards the map.
type WizardRegistry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	now     func() time.Time
}

// NewWizardRegistry creates an empty registry.
func NewWizardRegistry() *WizardRegistry {
	return &WizardRegistry{entries: make(map[string]*registryEntry), now: time.Now}
}

// Add registers w and returns its session ID.
func (r *WizardRegistry) Add(w *Wizard) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &registryEntry{wizard: w, touched: r.now()}
	return id
}

// Get returns the wizard for id, or ErrWizardNotFound. It marks the session
// as used.
func (r *WizardRegistry) Get(id string) (*Wizard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrWizardNotFound
	}
	e.touched = r.now()
	return e.wizard, nil
}

// Remove forgets the wizard for id. Removing an unknown ID is a no-op.
func (r *WizardRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of live wizards.
func (r *WizardRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes closed wizards and wizards unused for longer than maxIdle,
// returning how many were removed. A wizard with a submission in flight is
// never removed. New-mode drafts are left in place so the user can resume.
func (r *WizardRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.entries {
		if e.wizard.Submitting() {
			continue
		}
		if e.wizard.Closed() || e.touched.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
