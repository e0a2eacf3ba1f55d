package autosave

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/logging"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultDelay       = 30 * time.Second
	DefaultSaveTimeout = 15 * time.Second
)

type State int

const (
	Idle State = iota
	PendingTimer
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingTimer:
		return "pending"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source supplies the current field values of the form.
type Source interface {
	Values() models.Fields
}

// Owner resolves the acting user's account id.
type Owner interface {
	OwnerID(ctx context.Context) (string, error)
}

// ContentCheck reports whether a snapshot carries enough real content to be
// worth saving.
type ContentCheck func(models.Fields) bool

// TitleOrBody accepts snapshots with a non-blank title field or a body field
// of at least minBody characters after trimming.
func TitleOrBody(title, body string, minBody int) ContentCheck {
	return func(f models.Fields) bool {
		if title != "" && f.HasText(title) {
			return true
		}
		return body != "" && utf8.RuneCountInString(strings.TrimSpace(f.Text(body))) >= minBody
	}
}

type mode int

const (
	modeTimer mode = iota
	modeForced
	modeExplicit
)

func (m mode) silent() bool { return m != modeExplicit }

func (m mode) String() string {
	switch m {
	case modeTimer:
		return "timer"
	case modeForced:
		return "forced"
	default:
		return "explicit"
	}
}

type Scheduler struct {
	store remote.Store
	table string
	src   Source
	owner Owner

	clock       clockwork.Clock
	log         logging.Logger
	delay       time.Duration
	saveTimeout time.Duration
	hasContent  ContentCheck
	excluded    []string
	onCreated   func(ctx context.Context, id string)
	disabled    bool

	// target is held across one create-or-update resolution.
	target chan struct{}
	wg     sync.WaitGroup

	mu          sync.Mutex
	draftID     string
	baseline    models.Fields
	timer       clockwork.Timer
	gen         uint64
	inflight    int
	timerSaving bool
	rerun       bool
	stopped     bool
}

type Option func(*Scheduler)

func WithClock(c clockwork.Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithLogger(l logging.Logger) Option { return func(s *Scheduler) { s.log = l } }

// WithDelay sets the debounce window.
func WithDelay(d time.Duration) Option { return func(s *Scheduler) { s.delay = d } }

// WithSaveTimeout bounds silent saves, which run detached from any caller.
func WithSaveTimeout(d time.Duration) Option { return func(s *Scheduler) { s.saveTimeout = d } }

func WithContentCheck(c ContentCheck) Option { return func(s *Scheduler) { s.hasContent = c } }

// WithExcluded names fields that are never sent to the remote store.
func WithExcluded(names ...string) Option {
	return func(s *Scheduler) { s.excluded = append(s.excluded, names...) }
}

// WithDraftID makes every save update the existing row id.
func WithDraftID(id string) Option { return func(s *Scheduler) { s.draftID = id } }

// WithBaseline sets the snapshot considered already saved.
func WithBaseline(f models.Fields) Option { return func(s *Scheduler) { s.baseline = f.Clone() } }

// WithOnCreated registers a callback run after the remote draft is created.
func WithOnCreated(fn func(ctx context.Context, id string)) Option {
	return func(s *Scheduler) { s.onCreated = fn }
}

// Disabled turns off the silent paths; SaveNow and Commit keep working.
func Disabled() Option { return func(s *Scheduler) { s.disabled = true } }

func New(store remote.Store, table string, src Source, owner Owner, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		table:       table,
		src:         src,
		owner:       owner,
		clock:       clockwork.NewRealClock(),
		log:         logging.Nop(),
		delay:       DefaultDelay,
		saveTimeout: DefaultSaveTimeout,
		hasContent:  TitleOrBody("title", "content", 10),
		target:      make(chan struct{}, 1),
		baseline:    models.Fields{},
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "autosave", "table", table)
	return s
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.inflight > 0:
		return Saving
	case s.timer != nil:
		return PendingTimer
	default:
		return Idle
	}
}

// DraftID returns the id of the remote row saves target, or "".
func (s *Scheduler) DraftID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftID
}

// Dirty reports whether the form differs from the last saved baseline.
func (s *Scheduler) Dirty() bool {
	snap := s.src.Values()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked(snap)
}

// Changed must be called after every form change. It arms or restarts the
// debounce timer while the form is dirty and cancels it once the form is
// back at its baseline.
func (s *Scheduler) Changed() {
	snap := s.src.Values()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.disabled {
		return
	}
	if !s.dirtyLocked(snap) {
		s.cancelTimerLocked()
		return
	}

	s.cancelTimerLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.timerSaving {
		// one re-run after the save in flight
		s.rerun = true
		s.mu.Unlock()
		return
	}
	s.timerSaving = true
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	for {
		s.silentSave(modeTimer)

		s.mu.Lock()
		if s.rerun && !s.stopped {
			s.rerun = false
			s.mu.Unlock()
			continue
		}
		s.timerSaving = false
		s.rerun = false
		s.mu.Unlock()
		return
	}
}

// Flush forces an immediate save when the form is dirty, cancelling any
// pending timer. It is best effort: failures are logged, never returned,
// and the attempt is bounded by the save timeout.
func (s *Scheduler) Flush(ctx context.Context) {
	snap := s.src.Values()

	s.mu.Lock()
	if s.stopped || s.disabled {
		s.mu.Unlock()
		return
	}
	s.cancelTimerLocked()
	if !s.dirtyLocked(snap) {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.silentSaveCtx(context.WithoutCancel(ctx), modeForced)
}

// SaveNow performs an explicit save and returns its outcome.
func (s *Scheduler) SaveNow(ctx context.Context) (*remote.Record, error) {
	s.cancelTimer()
	return s.save(ctx, modeExplicit, "")
}

// Commit saves the form and promotes the remote row to status.
func (s *Scheduler) Commit(ctx context.Context, status string) (*remote.Record, error) {
	s.cancelTimer()
	return s.save(ctx, modeExplicit, status)
}

// Stop cancels the pending timer and disables every later silent save.
// Saves already in flight are not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.rerun = false
	s.cancelTimerLocked()
}

// Wait blocks until silent saves started before the call have finished.
// It is meant to be called after Stop.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) cancelTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
}

func (s *Scheduler) cancelTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) dirtyLocked(snap models.Fields) bool {
	return !snap.Without(s.excluded...).Equal(s.baseline.Without(s.excluded...))
}

func (s *Scheduler) silentSave(m mode) {
	s.silentSaveCtx(context.Background(), m)
}

func (s *Scheduler) silentSaveCtx(parent context.Context, m mode) {
	ctx, cancel := context.WithTimeout(parent, s.saveTimeout)
	defer cancel()

	if _, err := s.save(ctx, m, ""); err != nil {
		s.log.Warn(ctx, "autosave failed", "mode", m.String(), "error", err)
	}
}

// save runs one save on any path. Silent paths return nil for skipped saves.
func (s *Scheduler) save(ctx context.Context, m mode, status string) (*remote.Record, error) {
	ctx = logging.ContextWith(ctx, "mode", m.String())
	snap := s.src.Values()

	if !s.hasContent(snap) {
		if m.silent() {
			s.log.Debug(ctx, "autosave skipped: no content")
			return nil, nil
		}
		return nil, common.ErrEmptyDraft
	}

	owner, err := s.owner.OwnerID(ctx)
	if err == nil && owner == "" {
		err = common.ErrNoOwner
	}
	if err != nil {
		if m.silent() {
			s.log.Error(ctx, "autosave skipped: owner not resolvable", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve owner: %w", err)
	}

	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	select {
	case s.target <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.target }()

	// A concurrent save may already have stored this state.
	snap = s.src.Values()
	s.mu.Lock()
	id := s.draftID
	dirty := s.dirtyLocked(snap)
	s.mu.Unlock()
	if m.silent() && !dirty {
		return nil, nil
	}

	payload := remote.ContentFields(snap.Without(s.excluded...)).Normalize()
	if status != "" {
		payload[models.FieldStatus] = status
	}

	var rec *remote.Record
	if id == "" {
		payload[models.FieldOwnerID] = owner
		if status == "" {
			payload[models.FieldStatus] = models.StatusDraft
		}
		rec, err = s.store.InsertRecord(ctx, s.table, payload)
		if err != nil {
			return nil, fmt.Errorf("create draft: %w", err)
		}

		s.mu.Lock()
		s.draftID = rec.ID
		s.baseline = snap
		s.mu.Unlock()

		s.log.Info(ctx, "remote draft created", "draft_id", rec.ID)
		if s.onCreated != nil {
			s.onCreated(ctx, rec.ID)
		}
		return rec, nil
	}

	rec, err = s.store.UpdateRecord(ctx, s.table, id, payload)
	if err != nil {
		return nil, fmt.Errorf("update draft %s: %w", id, err)
	}

	s.mu.Lock()
	s.baseline = snap
	s.mu.Unlock()

	s.log.Debug(ctx, "remote draft updated", "draft_id", id)
	return rec, nil
}
