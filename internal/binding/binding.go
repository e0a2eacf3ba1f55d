// Package binding mirrors a live form into the Draft Store.
//
// A Binding restores the local draft once at mount, then writes the full
// field snapshot under its key after every change that happens strictly
// after mount. Write failures degrade persistence silently; the form keeps
// working.
package binding

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/draftkeeper/internal/logging"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
)

// DraftStore is the subset of drafts.Store used by the binding.
type DraftStore interface {
	WriteWithStatus(ctx context.Context, key, status string, fields models.Fields, excluded ...string) error
	Read(ctx context.Context, key string) (*models.DraftRecord, bool)
	Clear(ctx context.Context, key string) error
}

// Source is the form being mirrored.
type Source interface {
	Values() models.Fields
	Merge(values models.Fields)
	Subscribe(l func(models.Fields)) (unsubscribe func())
}

type Binding struct {
	store    DraftStore
	excluded []string
	log      logging.Logger

	mu          sync.Mutex
	key         string
	status      string
	unsubscribe func()
}

func New(store DraftStore, key string, log logging.Logger, excluded ...string) *Binding {
	if log == nil {
		log = logging.Nop()
	}
	return &Binding{
		store:    store,
		key:      key,
		excluded: excluded,
		log:      log.With("component", "binding"),
	}
}

// Key returns the active draft key.
func (b *Binding) Key() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key
}

// SetStatus sets the remote row status recorded with every later write.
func (b *Binding) SetStatus(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Mount restores the local draft into src, if any, and starts mirroring
// subsequent changes. It reports whether a draft was restored. Mounting an
// already mounted binding only re-reports restore.
func (b *Binding) Mount(ctx context.Context, src Source) bool {
	b.mu.Lock()
	key := b.key
	mounted := b.unsubscribe != nil
	b.mu.Unlock()

	rec, restored := b.store.Read(ctx, key)
	if mounted {
		return restored
	}
	if restored {
		src.Merge(rec.Fields)
		b.log.Debug(ctx, "local draft restored", "key", key, "fields", len(rec.Fields))
	}

	unsub := src.Subscribe(func(snapshot models.Fields) {
		b.write(context.WithoutCancel(ctx), snapshot)
	})

	b.mu.Lock()
	b.unsubscribe = unsub
	b.mu.Unlock()
	return restored
}

func (b *Binding) write(ctx context.Context, snapshot models.Fields) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubscribe == nil {
		return
	}
	if err := b.store.WriteWithStatus(ctx, b.key, b.status, snapshot, b.excluded...); err != nil {
		b.log.Warn(ctx, "local draft write failed", "key", b.key, "error", err)
	}
}

// Rekey switches the binding to newKey. The entry under the old key is
// cleared and the current values of src are written under the new key, so
// no further writes land on the old key.
func (b *Binding) Rekey(ctx context.Context, newKey string, src Source) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if newKey == b.key {
		return
	}
	old := b.key
	b.key = newKey

	if err := b.store.Clear(ctx, old); err != nil {
		b.log.Warn(ctx, "stale draft clear failed", "key", old, "error", err)
	}
	if b.unsubscribe == nil || src == nil {
		return
	}
	if err := b.store.WriteWithStatus(ctx, newKey, b.status, src.Values(), b.excluded...); err != nil {
		b.log.Warn(ctx, "local draft write failed", "key", newKey, "error", err)
	}
	b.log.Debug(ctx, "binding re-keyed", "from", old, "to", newKey)
}

// Clear removes the local draft under the active key.
func (b *Binding) Clear(ctx context.Context) error {
	b.mu.Lock()
	key := b.key
	b.mu.Unlock()
	return b.store.Clear(ctx, key)
}

// Unmount stops mirroring. The stored draft is kept.
func (b *Binding) Unmount() {
	b.mu.Lock()
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
