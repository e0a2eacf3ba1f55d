package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/draftkeeper/internal/config"
	"github.com/dmitrijs2005/draftkeeper/internal/editor"
	"github.com/dmitrijs2005/draftkeeper/internal/identity"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/dmitrijs2005/draftkeeper/internal/remote/memory"
	"github.com/dmitrijs2005/draftkeeper/internal/remote/postgres"
	"github.com/dmitrijs2005/draftkeeper/internal/remote/supabase"
	"github.com/dmitrijs2005/draftkeeper/internal/session"
	"github.com/dmitrijs2005/draftkeeper/internal/uploads"
)

// Seams for the backends that need a live server.
var (
	openPostgres = func(ctx context.Context, dsn string, tables ...string) (remote.Store, func() error, error) {
		s, err := postgres.Open(ctx, dsn, tables...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	dialSupabase = func(url, key string) (remote.Store, error) {
		return supabase.Dial(url, key)
	}
)

func nopClose() error { return nil }

// openRemote builds the remote store named by cfg.Backend.
func openRemote(ctx context.Context, cfg *config.Config) (remote.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.New(memory.WithTables(editor.Tables()...)), nopClose, nil
	case config.BackendPostgres:
		s, closeFn, err := openPostgres(ctx, cfg.DatabaseDSN, editor.Tables()...)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres backend: %w", err)
		}
		return s, closeFn, nil
	case config.BackendSupabase:
		s, err := dialSupabase(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, fmt.Errorf("open supabase backend: %w", err)
		}
		return s, nopClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openSession builds the session storage backing the local drafts. The
// returned close function ends the session, which removes its drafts.
func openSession(ctx context.Context, cfg *config.Config) (session.Storage, func(context.Context) error, error) {
	var (
		storage session.Storage
		closeFn = func(context.Context) error { return nil }
	)

	if cfg.SessionDSN == "" {
		storage = session.NewMemory()
	} else {
		s, err := session.OpenSQLite(ctx, cfg.SessionDSN, cfg.SessionID)
		if err != nil {
			return nil, nil, err
		}
		storage, closeFn = s, s.Close
	}

	if cfg.SessionSecret != "" {
		storage = session.NewSealed(storage, cfg.SessionSecret, cfg.SessionID)
	}
	return storage, closeFn, nil
}

// newOwner prefers a fixed user id; otherwise the owner comes from the
// access token, which may be supplied later with "login".
func newOwner(cfg *config.Config) (identity.Resolver, *identity.TokenResolver) {
	if cfg.UserID != "" {
		return identity.Static(cfg.UserID), nil
	}
	var secret []byte
	if cfg.JWTSecret != "" {
		secret = []byte(cfg.JWTSecret)
	}
	tr := identity.NewTokenResolver(cfg.AccessToken, secret)
	return tr, tr
}

func newUploader(cfg *config.Config) uploads.Uploader {
	s3cfg, ok := cfg.S3()
	if !ok {
		return nil
	}
	return uploads.NewS3Uploader(s3cfg, nil)
}
