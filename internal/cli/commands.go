package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/editor"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
)

var errNoTokenAuth = errors.New("login is not available: a fixed user id is configured")

func (a *App) current() (*editor.Editor, error) {
	if a.editor == nil {
		return nil, common.ErrNotOpen
	}
	return a.editor, nil
}

// Forms lists the form types with their tables.
func (a *App) Forms(context.Context) error {
	for _, t := range editor.Types() {
		spec, err := editor.Lookup(t)
		if err != nil {
			return err
		}
		autosave := "autosave"
		if !spec.Autosave {
			autosave = "manual"
		}
		printlnFn(fmt.Sprintf("%-12s %-13s %s", t, spec.Table, autosave))
	}
	return nil
}

// Login reads an access token and resolves its subject.
func (a *App) Login(ctx context.Context) error {
	if a.tokens == nil {
		return errNoTokenAuth
	}
	tok, err := GetSecret(a.out, "Access token")
	if err != nil {
		return err
	}
	a.tokens.SetToken(tok)

	sub, err := a.tokens.OwnerID(ctx)
	if err != nil {
		a.tokens.SetToken("")
		return err
	}
	printlnFn("Logged in as", sub)
	return nil
}

// Open opens "open <type> [id]". An already open form is closed first.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: open <type> [id]")
	}
	spec, err := editor.Lookup(models.FormType(args[0]))
	if err != nil {
		return err
	}
	var entityID string
	if len(args) == 2 {
		entityID = args[1]
	}

	a.closeEditor(ctx)

	e, err := editor.Open(ctx, a.deps, spec, entityID)
	if err != nil {
		return err
	}
	a.editor = e

	res := e.Result()
	printlnFn(fmt.Sprintf("Opened %s from %s (autosave %s)", spec.Type, res.Source, onOff(e.AutosaveEnabled())))
	return nil
}

// Set handles "set <field> <value...>".
func (a *App) Set(_ context.Context, args []string) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("usage: set <field> <value>")
	}
	return e.Set(args[0], strings.Join(args[1:], " "))
}

// Show prints the field values in name order.
func (a *App) Show(context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	values := e.Values()
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, n := range names {
		v := values[n]
		if ref, ok := v.(models.FileRef); ok {
			v = ref.Path
		}
		printlnFn(fmt.Sprintf("%s: %v", n, v))
	}
	return nil
}

// State prints the autosave state, key and draft id.
func (a *App) State(context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	draftID := e.DraftID()
	if draftID == "" {
		draftID = "-"
	}
	printlnFn(fmt.Sprintf("state=%s autosave=%s key=%s draft=%s", e.State(), onOff(e.AutosaveEnabled()), e.Key(), draftID))
	return nil
}

func (a *App) Save(ctx context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	_, err = e.SaveDraft(ctx)
	return reported(err)
}

func (a *App) Submit(ctx context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	if _, err := e.Submit(ctx); err != nil {
		return reported(err)
	}
	a.editor = nil
	return nil
}

// Attach handles "attach <field> <path>".
func (a *App) Attach(ctx context.Context, args []string) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return errors.New("usage: attach <field> <path>")
	}
	_, err = e.Attach(ctx, args[0], args[1])
	return reported(err)
}

func (a *App) Hide(ctx context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	e.Hide(ctx)
	return nil
}

func (a *App) Cancel(ctx context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	a.editor = nil
	return reported(e.Cancel(ctx))
}

func (a *App) Discard(ctx context.Context) error {
	e, err := a.current()
	if err != nil {
		return err
	}
	a.editor = nil
	return reported(e.Discard(ctx))
}

// CloseForm closes the open form keeping its local draft.
func (a *App) CloseForm(ctx context.Context) error {
	if _, err := a.current(); err != nil {
		return err
	}
	a.closeEditor(ctx)
	printlnFn("Closed")
	return nil
}

// reported drops the errors the editor has already shown through the
// notifier.
func reported(err error) error {
	if errors.Is(err, common.ErrNotOpen) || errors.Is(err, common.ErrNotFileField) {
		return err
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
