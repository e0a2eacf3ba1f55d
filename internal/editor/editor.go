// Package editor runs one open form: it hydrates the form through the
// reconciler, mirrors it into the Draft Store and drives its autosave
// scheduler, and implements the user actions on top of them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/autosave"
	"github.com/dmitrijs2005/draftkeeper/internal/binding"
	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/drafts"
	"github.com/dmitrijs2005/draftkeeper/internal/form"
	"github.com/dmitrijs2005/draftkeeper/internal/identity"
	"github.com/dmitrijs2005/draftkeeper/internal/logging"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/reconcile"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/dmitrijs2005/draftkeeper/internal/uploads"
	"github.com/jonboulle/clockwork"
)

// AnonymousUser keys the drafts of forms opened without a resolvable owner.
const AnonymousUser = "anonymous"

const (
	msgEmpty     = "Nothing to save yet: add a title or some content"
	msgSaved     = "Draft saved"
	msgSubmitted = "Submitted"
	msgCancelled = "Changes discarded"
	msgDiscarded = "Draft deleted"
)

type Deps struct {
	Drafts   *drafts.Store
	Remote   remote.Store
	Owner    identity.Resolver
	Notifier Notifier
	Uploader uploads.Uploader
	Clock    clockwork.Clock
	Logger   logging.Logger

	AutosaveDelay time.Duration
	DraftWindow   time.Duration
	SaveTimeout   time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.AutosaveDelay <= 0 {
		d.AutosaveDelay = autosave.DefaultDelay
	}
	if d.DraftWindow <= 0 {
		d.DraftWindow = reconcile.DefaultWindow
	}
	if d.SaveTimeout <= 0 {
		d.SaveTimeout = autosave.DefaultSaveTimeout
	}
	return d
}

type Editor struct {
	deps Deps
	spec Spec
	log  logging.Logger

	form    *form.Form
	binding *binding.Binding
	sched   *autosave.Scheduler
	result  reconcile.Result
	unsub   func()

	mu        sync.Mutex
	createdID string
	closed    bool
}

// Open mounts a form of type spec for entityID ("" creates a new entity).
func Open(ctx context.Context, deps Deps, spec Spec, entityID string) (*Editor, error) {
	deps = deps.withDefaults()
	if deps.Drafts == nil || deps.Remote == nil || deps.Owner == nil {
		return nil, errors.New("editor: drafts, remote and owner are required")
	}

	owner, err := deps.Owner.OwnerID(ctx)
	userID := owner
	if err != nil || owner == "" {
		deps.Logger.Warn(ctx, "owner not resolvable, drafts stay local", "error", err)
		owner, userID = "", AnonymousUser
	}

	log := deps.Logger.With("form", string(spec.Type))
	key := models.NewDraftKey(spec.Type, userID, entityID)

	rec := reconcile.New(deps.Drafts, deps.Remote,
		reconcile.WithClock(deps.Clock),
		reconcile.WithWindow(deps.DraftWindow),
		reconcile.WithLogger(log),
	)
	res := rec.Reconcile(ctx, reconcile.Request{
		Key:      key,
		Table:    spec.Table,
		OwnerID:  owner,
		Defaults: spec.Defaults,
	})
	if res.Notice != "" {
		deps.Notifier.Notify(ctx, LevelWarning, res.Notice)
	}
	log.Info(ctx, "form opened", "key", res.Key.String(), "source", string(res.Source), "draft_id", res.DraftID)

	e := &Editor{deps: deps, spec: spec, log: log, result: res}
	e.form = form.New(res.Values)
	e.binding = binding.New(deps.Drafts, res.Key.String(), log, spec.Files...)
	e.binding.SetStatus(res.Status)
	e.binding.Mount(ctx, e.form)

	baseline := res.Values
	if res.Local() {
		baseline = spec.Defaults
	}

	opts := []autosave.Option{
		autosave.WithClock(deps.Clock),
		autosave.WithLogger(log),
		autosave.WithDelay(deps.AutosaveDelay),
		autosave.WithSaveTimeout(deps.SaveTimeout),
		autosave.WithExcluded(spec.Files...),
		autosave.WithDraftID(res.DraftID),
		autosave.WithBaseline(baseline),
		autosave.WithOnCreated(e.created),
	}
	if spec.HasContent != nil {
		opts = append(opts, autosave.WithContentCheck(spec.HasContent))
	}
	if !e.autosaveEnabled() {
		opts = append(opts, autosave.Disabled())
	}
	e.sched = autosave.New(deps.Remote, spec.Table, e.form, deps.Owner, opts...)
	e.unsub = e.form.Subscribe(func(models.Fields) { e.sched.Changed() })

	return e, nil
}

// autosaveEnabled is true for new forms and for rows still in draft status.
// Published entities are only ever saved explicitly.
func (e *Editor) autosaveEnabled() bool {
	if !e.spec.Autosave {
		return false
	}
	if e.result.Status == models.StatusDraft {
		return true
	}
	return e.result.Key.IsNew() && e.result.DraftID == ""
}

func (e *Editor) created(ctx context.Context, id string) {
	e.mu.Lock()
	e.createdID = id
	e.mu.Unlock()
	e.binding.SetStatus(models.StatusDraft)
	e.binding.Rekey(ctx, e.result.Key.WithEntity(id).String(), e.form)
}

func (e *Editor) Spec() Spec { return e.spec }
func (e *Editor) Result() reconcile.Result { return e.result }
func (e *Editor) Values() models.Fields { return e.form.Values() }
func (e *Editor) State() autosave.State { return e.sched.State() }
func (e *Editor) DraftID() string { return e.sched.DraftID() }
func (e *Editor) Key() string { return e.binding.Key() }
func (e *Editor) AutosaveEnabled() bool { return e.autosaveEnabled() }
func (e *Editor) Notifier() Notifier { return e.deps.Notifier }
func (e *Editor) Scheduler() *autosave.Scheduler { return e.sched }

func (e *Editor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Set changes one field.
func (e *Editor) Set(field string, value any) error {
	if e.isClosed() {
		return common.ErrNotOpen
	}
	e.form.Set(field, value)
	return nil
}

// SaveDraft is the explicit "save draft" action.
func (e *Editor) SaveDraft(ctx context.Context) (*remote.Record, error) {
	if e.isClosed() {
		return nil, common.ErrNotOpen
	}
	rec, err := e.sched.SaveNow(ctx)
	if err != nil {
		e.notifyErr(ctx, "Could not save draft", err)
		return nil, err
	}
	e.deps.Notifier.Notify(ctx, LevelSuccess, msgSaved)
	return rec, nil
}

// Submit promotes the form to its submitted status, clears the local draft
// and closes the editor.
func (e *Editor) Submit(ctx context.Context) (*remote.Record, error) {
	if e.isClosed() {
		return nil, common.ErrNotOpen
	}
	rec, err := e.sched.Commit(ctx, e.spec.SubmitStatus)
	if err != nil {
		e.notifyErr(ctx, "Could not submit", err)
		return nil, err
	}

	e.Close()
	if err := e.binding.Clear(ctx); err != nil {
		e.log.Warn(ctx, "local draft clear failed", "error", err)
	}
	e.deps.Notifier.Notify(ctx, LevelSuccess, msgSubmitted)
	return rec, nil
}

// Cancel drops the local draft and closes the editor. The remote draft, if
// any, is kept.
func (e *Editor) Cancel(ctx context.Context) error {
	if e.isClosed() {
		return common.ErrNotOpen
	}
	e.Close()
	if err := e.binding.Clear(ctx); err != nil {
		e.notifyErr(ctx, "Could not discard changes", err)
		return err
	}
	e.deps.Notifier.Notify(ctx, LevelInfo, msgCancelled)
	return nil
}

// Discard drops the local draft and deletes the remote draft row. Rows that
// are not drafts are never deleted.
func (e *Editor) Discard(ctx context.Context) error {
	if e.isClosed() {
		return common.ErrNotOpen
	}
	e.Close()
	e.sched.Wait()

	var errs []error
	if err := e.binding.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if id := e.ownedDraftID(); id != "" {
		if err := e.deps.Remote.DeleteRecord(ctx, e.spec.Table, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		e.notifyErr(ctx, "Could not delete draft", err)
		return err
	}
	e.deps.Notifier.Notify(ctx, LevelInfo, msgDiscarded)
	return nil
}

func (e *Editor) ownedDraftID() string {
	id := e.sched.DraftID()
	if id == "" {
		return ""
	}
	e.mu.Lock()
	created := e.createdID
	e.mu.Unlock()
	if id == created || e.result.Status == models.StatusDraft {
		return id
	}
	return ""
}

// Hide is the tab-hide / navigate-away hook: a best-effort forced save.
func (e *Editor) Hide(ctx context.Context) {
	if e.isClosed() {
		return
	}
	e.sched.Flush(ctx)
}

// Attach uploads the file at path for a file field and records its storage
// key in the form.
func (e *Editor) Attach(ctx context.Context, field, path string) (string, error) {
	if e.isClosed() {
		return "", common.ErrNotOpen
	}
	if !e.spec.IsFile(field) {
		return "", fmt.Errorf("%w: %s", common.ErrNotFileField, field)
	}
	if e.deps.Uploader == nil {
		err := errors.New("file uploads are not configured")
		e.notifyErr(ctx, "Could not upload file", err)
		return "", err
	}

	owner, err := e.deps.Owner.OwnerID(ctx)
	if err != nil {
		e.notifyErr(ctx, "Could not upload file", err)
		return "", err
	}

	key, err := e.deps.Uploader.Upload(ctx, owner, path)
	if err != nil {
		e.notifyErr(ctx, "Could not upload file", err)
		return "", err
	}

	e.form.SetMany(models.Fields{
		field:                   models.FileRef{Path: path},
		uploads.KeyField(field): key,
	})
	e.deps.Notifier.Notify(ctx, LevelSuccess, "File uploaded")
	return key, nil
}

// Close unmounts the form: the pending autosave is cancelled, an in-flight
// save completes, and the local draft is kept.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.sched.Stop()
	e.unsub()
	e.binding.Unmount()
}

// Wait blocks until in-flight silent saves finish. Call after Close.
func (e *Editor) Wait() { e.sched.Wait() }

func (e *Editor) notifyErr(ctx context.Context, prefix string, err error) {
	msg := prefix + ": " + err.Error()
	if errors.Is(err, common.ErrEmptyDraft) {
		msg = msgEmpty
	}
	var re *common.RemoteError
	if errors.As(err, &re) {
		msg = prefix + ": " + re.Message
	}
	e.log.Warn(ctx, "action failed", "error", err)
	e.deps.Notifier.Notify(ctx, LevelError, msg)
}
