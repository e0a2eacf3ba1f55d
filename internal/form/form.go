// Package form holds the live field values of one open form and publishes a
// snapshot to its subscribers after every user change.
package form

import (
	"slices"
	"sync"

	"github.com/dmitrijs2005/draftkeeper/internal/models"
)

// Listener receives the full field snapshot after a change. Listeners run
// synchronously on the mutating goroutine and must not mutate the form.
type Listener = func(snapshot models.Fields)

type Form struct {
	// emitMu orders notifications: a change and its notification are one
	// step, so listeners observe snapshots in mutation order.
	emitMu sync.Mutex

	mu        sync.RWMutex
	values    models.Fields
	listeners map[int]Listener
	nextID    int
}

// New returns a form seeded with defaults. Its values are a copy.
func New(defaults models.Fields) *Form {
	return &Form{
		values:    defaults.Clone(),
		listeners: make(map[int]Listener),
	}
}

// Values returns a snapshot of the current values.
func (f *Form) Values() models.Fields {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values.Clone()
}

// Get returns a single field value.
func (f *Form) Get(name string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[name]
	return v, ok
}

// Set changes one field and notifies subscribers.
func (f *Form) Set(name string, value any) {
	f.SetMany(models.Fields{name: value})
}

// SetMany changes several fields as one change and notifies subscribers once.
func (f *Form) SetMany(changes models.Fields) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()

	f.mu.Lock()
	for k, v := range changes {
		f.values[k] = v
	}
	snapshot := f.values.Clone()
	listeners := f.snapshotListeners()
	f.mu.Unlock()

	for _, l := range listeners {
		l(snapshot.Clone())
	}
}

// Reset replaces all values without notifying subscribers.
func (f *Form) Reset(values models.Fields) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = values.Clone()
}

// Merge overlays values field by field without notifying subscribers. Fields
// absent from values keep their current value.
func (f *Form) Merge(values models.Fields) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = f.values.Merge(values)
}

// Subscribe registers l and returns a func that removes it.
func (f *Form) Subscribe(l Listener) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, id)
			f.mu.Unlock()
		})
	}
}

// snapshotListeners must be called with mu held.
func (f *Form) snapshotListeners() []Listener {
	ids := make([]int, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.listeners[id])
	}
	return out
}
