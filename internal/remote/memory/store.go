// Package memory is an in-process remote.Store with operation counters and
// failure injection, used by tests and by the memory backend of draftctl.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Operation names reported to hooks and counters.
const (
	OpFetch     = "fetch"
	OpInsert    = "insert"
	OpUpdate    = "update"
	OpFindDraft = "find_draft"
	OpDelete    = "delete"
)

// Hook runs before every operation, outside the store lock. A non-nil
// error fails the operation with a RemoteError. Hooks may block.
type Hook func(ctx context.Context, op, table string) error

type Store struct {
	clock  clockwork.Clock
	tables map[string]struct{}

	mu    sync.Mutex
	rows  map[string]map[string]*remote.Record
	calls map[string]int
	hook  Hook
}

type Option func(*Store)

func WithClock(c clockwork.Clock) Option { return func(s *Store) { s.clock = c } }

// WithTables restricts the store to the named tables; other names fail with
// common.ErrUnknownTable. Without it every table name is accepted.
func WithTables(names ...string) Option {
	return func(s *Store) {
		s.tables = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.tables[n] = struct{}{}
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		clock: clockwork.NewRealClock(),
		rows:  make(map[string]map[string]*remote.Record),
		calls: make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetHook installs h; nil removes it.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Rows returns copies of all rows of table ordered by creation time.
func (s *Store) Rows(table string) []*remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*remote.Record, 0, len(s.rows[table]))
	for _, r := range s.rows[table] {
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Put stores rec as is, for seeding tests. A missing id is generated.
func (s *Store) Put(table string, rec *remote.Record) *remote.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := clone(rec)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.table(table)[c.ID] = c
	return clone(c)
}

func (s *Store) FetchEntity(ctx context.Context, table, id string) (*remote.Record, error) {
	if err := s.before(ctx, OpFetch, table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[table][id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r), nil
}

func (s *Store) InsertRecord(ctx context.Context, table string, fields models.Fields) (*remote.Record, error) {
	if err := s.before(ctx, OpInsert, table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	r := &remote.Record{
		ID:        uuid.NewString(),
		Fields:    userFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.table(table)[r.ID] = r
	return clone(r), nil
}

func (s *Store) UpdateRecord(ctx context.Context, table, id string, fields models.Fields) (*remote.Record, error) {
	if err := s.before(ctx, OpUpdate, table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[table][id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	r.Fields = r.Fields.Merge(userFields(fields))
	r.UpdatedAt = s.clock.Now()
	return clone(r), nil
}

func (s *Store) FindDraft(ctx context.Context, table, ownerID string, since time.Time) (*remote.Record, error) {
	if err := s.before(ctx, OpFindDraft, table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *remote.Record
	for _, r := range s.rows[table] {
		if r.OwnerID() != ownerID || r.Status() != models.StatusDraft || r.UpdatedAt.Before(since) {
			continue
		}
		if best == nil || r.UpdatedAt.After(best.UpdatedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	return clone(best), nil
}

func (s *Store) DeleteRecord(ctx context.Context, table, id string) error {
	if err := s.before(ctx, OpDelete, table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rows[table], id)
	return nil
}

func (s *Store) before(ctx context.Context, op, table string) error {
	s.mu.Lock()
	s.calls[op]++
	hook := s.hook
	_, known := s.tables[table]
	restricted := s.tables != nil
	s.mu.Unlock()

	if restricted && !known {
		return common.NewRemoteError(op, common.ErrUnknownTable)
	}
	if err := ctx.Err(); err != nil {
		return common.NewRemoteError(op, err)
	}
	if hook != nil {
		if err := hook(ctx, op, table); err != nil {
			return common.NewRemoteError(op, err)
		}
	}
	return nil
}

// table must be called with mu held.
func (s *Store) table(name string) map[string]*remote.Record {
	t, ok := s.rows[name]
	if !ok {
		t = make(map[string]*remote.Record)
		s.rows[name] = t
	}
	return t
}

func userFields(f models.Fields) models.Fields {
	return f.Without(models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt)
}

func clone(r *remote.Record) *remote.Record {
	c := *r
	c.Fields = r.Fields.Clone()
	return &c
}
