// Package reconcile decides, at form mount, which source seeds a form.
//
// Precedence, first match wins:
//
//  1. a local draft under the form's key;
//  2. the server representation of the entity being edited;
//  3. the acting user's most recent remote draft inside the draft window;
//  4. the form's base defaults.
//
// Local drafts win even over newer remote data: they are assumed to be
// fresher. Fetch failures never block the form; they produce a Notice and
// the base defaults.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/logging"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/jonboulle/clockwork"
)

const DefaultWindow = 24 * time.Hour

// NoticeLoadFailed is shown when hydration data could not be fetched.
const NoticeLoadFailed = "could not load saved data, starting from an empty form"

type Source string

const (
	SourceLocal       Source = "local"
	SourceEntity      Source = "entity"
	SourceRemoteDraft Source = "remote_draft"
	SourceDefaults    Source = "defaults"
)

// LocalDrafts is the read side of the Draft Store.
type LocalDrafts interface {
	Read(ctx context.Context, key string) (*models.DraftRecord, bool)
}

type Request struct {
	Key      models.DraftKey
	Table    string
	OwnerID  string
	Defaults models.Fields
}

type Result struct {
	Source Source
	// Key is the draft key the form should bind to. It differs from the
	// requested key when a remote draft was adopted.
	Key     models.DraftKey
	Values  models.Fields
	DraftID string
	Status  string
	Notice  string
	Err     error
}

// Local reports whether the form was seeded from a local draft.
func (r Result) Local() bool { return r.Source == SourceLocal }

type Reconciler struct {
	local  LocalDrafts
	remote remote.Store
	clock  clockwork.Clock
	window time.Duration
	log    logging.Logger
}

type Option func(*Reconciler)

func WithClock(c clockwork.Clock) Option { return func(r *Reconciler) { r.clock = c } }

// WithWindow sets how old a remote draft may be and still be adopted.
func WithWindow(d time.Duration) Option { return func(r *Reconciler) { r.window = d } }

func WithLogger(l logging.Logger) Option { return func(r *Reconciler) { r.log = l } }

func New(local LocalDrafts, store remote.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		local:  local,
		remote: store,
		clock:  clockwork.NewRealClock(),
		window: DefaultWindow,
		log:    logging.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reconciler) Reconcile(ctx context.Context, req Request) Result {
	res := Result{Key: req.Key, Source: SourceDefaults, Values: req.Defaults.Clone()}
	if !req.Key.IsNew() {
		res.DraftID = req.Key.EntityID
	}

	if rec, ok := r.local.Read(ctx, req.Key.String()); ok {
		res.Source = SourceLocal
		res.Values = req.Defaults.Merge(rec.Fields)
		res.Status = rec.Status
		return res
	}

	if !req.Key.IsNew() {
		return r.fromEntity(ctx, req, res)
	}
	return r.fromRemoteDraft(ctx, req, res)
}

func (r *Reconciler) fromEntity(ctx context.Context, req Request, res Result) Result {
	rec, err := r.remote.FetchEntity(ctx, req.Table, req.Key.EntityID)
	if err != nil {
		r.log.Warn(ctx, "entity fetch failed", "table", req.Table, "id", req.Key.EntityID, "error", err)
		res.Notice = NoticeLoadFailed
		res.Err = err
		res.DraftID = ""
		return res
	}

	res.Source = SourceEntity
	res.Values = req.Defaults.Merge(remote.ContentFields(rec.Fields))
	res.DraftID = rec.ID
	res.Status = rec.Status()
	return res
}

func (r *Reconciler) fromRemoteDraft(ctx context.Context, req Request, res Result) Result {
	if req.OwnerID == "" {
		r.log.Debug(ctx, "remote draft lookup skipped: no owner", "table", req.Table)
		return res
	}

	since := r.clock.Now().Add(-r.window)
	rec, err := r.remote.FindDraft(ctx, req.Table, req.OwnerID, since)
	if errors.Is(err, common.ErrorNotFound) {
		return res
	}
	if err != nil {
		r.log.Warn(ctx, "remote draft lookup failed", "table", req.Table, "error", err)
		res.Notice = NoticeLoadFailed
		res.Err = err
		return res
	}

	res.Key = req.Key.WithEntity(rec.ID)
	res.DraftID = rec.ID
	res.Status = rec.Status()

	// A local draft saved after the remote draft was created lives under
	// the re-keyed key.
	if local, ok := r.local.Read(ctx, res.Key.String()); ok {
		res.Source = SourceLocal
		res.Values = req.Defaults.Merge(local.Fields)
		return res
	}

	res.Source = SourceRemoteDraft
	res.Values = req.Defaults.Merge(remote.ContentFields(rec.Fields))
	return res
}
