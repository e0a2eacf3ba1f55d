package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/draftkeeper/internal/config"
	"github.com/dmitrijs2005/draftkeeper/internal/drafts"
	"github.com/dmitrijs2005/draftkeeper/internal/editor"
	"github.com/dmitrijs2005/draftkeeper/internal/identity"
	"github.com/dmitrijs2005/draftkeeper/internal/logging"
)

// App holds the wired dependencies of one draftctl session and the form
// currently open, if any.
type App struct {
	cfg    *config.Config
	deps   editor.Deps
	log    logging.Logger
	tokens *identity.TokenResolver

	closeRemote  func() error
	closeSession func(context.Context) error

	in  io.Reader
	out io.Writer

	editor *editor.Editor
}

// NewApp wires logging, the remote backend, session storage, identity and
// uploads from cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}

	store, closeRemote, err := openRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}

	storage, closeSession, err := openSession(ctx, cfg)
	if err != nil {
		_ = closeRemote()
		return nil, err
	}

	owner, tokens := newOwner(cfg)

	a := &App{
		cfg:          cfg,
		log:          log,
		tokens:       tokens,
		closeRemote:  closeRemote,
		closeSession: closeSession,
		in:           os.Stdin,
		out:          os.Stdout,
	}
	a.deps = editor.Deps{
		Drafts:        drafts.NewStore(storage, drafts.WithLogger(log)),
		Remote:        store,
		Owner:         owner,
		Notifier:      editor.NotifierFunc(a.notify),
		Uploader:      newUploader(cfg),
		Logger:        log,
		AutosaveDelay: cfg.AutosaveDelay,
		DraftWindow:   cfg.RemoteDraftWindow,
		SaveTimeout:   cfg.SaveTimeout,
	}

	log.Info(ctx, "draftctl ready", "backend", cfg.Backend, "session", cfg.SessionID)
	return a, nil
}

func (a *App) notify(_ context.Context, level editor.Level, message string) {
	printlnFn(fmt.Sprintf("[%s] %s", level, message))
}

// Run starts the REPL and releases every resource when it ends.
func (a *App) Run(ctx context.Context) {
	defer func() {
		cctx := context.WithoutCancel(ctx)
		if err := a.Close(cctx); err != nil {
			a.log.Error(cctx, "shutdown failed", "error", err)
		}
	}()

	printlnFn("Welcome to draftctl (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.in))
}

// Close flushes and closes the open form, then ends the session.
func (a *App) Close(ctx context.Context) error {
	a.closeEditor(ctx)

	var errs []error
	if err := a.closeSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}
	if err := a.closeRemote(); err != nil {
		errs = append(errs, fmt.Errorf("close remote: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) isOpen() bool { return a.editor != nil }

// closeEditor behaves like navigating away: pending changes are flushed
// and the form is unmounted with its local draft kept.
func (a *App) closeEditor(ctx context.Context) {
	if a.editor == nil {
		return
	}
	a.editor.Hide(ctx)
	a.editor.Close()
	a.editor.Wait()
	a.editor = nil
}

func (a *App) getStatus() string {
	user, err := a.deps.Owner.OwnerID(context.Background())
	if err != nil || user == "" {
		user = editor.AnonymousUser
	}
	if a.editor == nil {
		return fmt.Sprintf("(%s)", user)
	}
	return fmt.Sprintf("(%s %s:%s)", user, a.editor.Spec().Type, a.editor.State())
}
