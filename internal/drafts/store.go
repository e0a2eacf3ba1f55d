// Package drafts implements the Draft Store: a session-scoped cache of form
// field values keyed by draft key.
//
// Values are stored as one JSON document per key. Reads never fail: absent,
// unreadable and corrupted entries are all reported as absent.
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/logging"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/session"
	"github.com/jonboulle/clockwork"
)

// storedRecord is the on-storage layout. Fields are kept raw so that each
// one is encoded independently.
type storedRecord struct {
	Key     string                     `json:"key"`
	Status  string                     `json:"status,omitempty"`
	Fields  map[string]json.RawMessage `json:"fields"`
	SavedAt time.Time                  `json:"saved_at"`
}

type Store struct {
	storage session.Storage
	clock   clockwork.Clock
	log     logging.Logger
}

type Option func(*Store)

func WithClock(c clockwork.Clock) Option { return func(s *Store) { s.clock = c } }

func WithLogger(l logging.Logger) Option { return func(s *Store) { s.log = l } }

func NewStore(storage session.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		clock:   clockwork.NewRealClock(),
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Write stores fields under key, replacing any previous value. Fields named
// in excluded are never written; fields whose value cannot be encoded are
// silently omitted. Only storage failures are returned.
func (s *Store) Write(ctx context.Context, key string, fields models.Fields, excluded ...string) error {
	return s.WriteWithStatus(ctx, key, "", fields, excluded...)
}

// WriteWithStatus is Write that also records the status of the remote row
// the draft belongs to ("" when there is none or it is unknown).
func (s *Store) WriteWithStatus(ctx context.Context, key, status string, fields models.Fields, excluded ...string) error {
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[name] = struct{}{}
	}

	rec := storedRecord{
		Key:     key,
		Status:  status,
		Fields:  make(map[string]json.RawMessage, len(fields)),
		SavedAt: s.clock.Now().UTC(),
	}
	for name, v := range fields {
		if _, ok := skip[name]; ok {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			s.log.Debug(ctx, "draft field omitted", "key", key, "field", name, "error", err)
			continue
		}
		rec.Fields[name] = b
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode draft[%s]: %w", key, err)
	}
	if err := s.storage.SetItem(ctx, key, data); err != nil {
		return fmt.Errorf("write draft[%s]: %w", key, err)
	}
	return nil
}

// Read returns the record stored under key. The boolean is false when the
// key was never written, was cleared, or holds data that cannot be decoded.
func (s *Store) Read(ctx context.Context, key string) (*models.DraftRecord, bool) {
	data, err := s.storage.GetItem(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "draft read failed", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Fields == nil {
		s.log.Warn(ctx, "corrupted draft ignored", "key", key)
		return nil, false
	}

	out := &models.DraftRecord{
		Key:     key,
		Status:  rec.Status,
		Fields:  make(models.Fields, len(rec.Fields)),
		SavedAt: rec.SavedAt,
	}
	for name, raw := range rec.Fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		out.Fields[name] = v
	}
	return out, true
}

// Has reports whether Read would return a record for key.
func (s *Store) Has(ctx context.Context, key string) bool {
	_, ok := s.Read(ctx, key)
	return ok
}

// Clear removes key. Clearing an absent key is a no-op.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.storage.RemoveItem(ctx, key); err != nil {
		return fmt.Errorf("clear draft[%s]: %w", key, err)
	}
	return nil
}
