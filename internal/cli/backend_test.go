package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/draftkeeper/internal/config"
	"github.com/dmitrijs2005/draftkeeper/internal/identity"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/dmitrijs2005/draftkeeper/internal/remote/memory"
	"github.com/dmitrijs2005/draftkeeper/internal/session"
	"github.com/dmitrijs2005/draftkeeper/internal/uploads"
)

func TestOpenRemote_Backends(t *testing.T) {
	ctx := context.Background()

	origPG, origSB := openPostgres, dialSupabase
	t.Cleanup(func() { openPostgres, dialSupabase = origPG, origSB })

	var gotDSN string
	var gotTables []string
	closed := false
	openPostgres = func(_ context.Context, dsn string, tables ...string) (remote.Store, func() error, error) {
		gotDSN, gotTables = dsn, tables
		return memory.New(), func() error { closed = true; return nil }, nil
	}
	var gotURL, gotKey string
	dialSupabase = func(url, key string) (remote.Store, error) {
		gotURL, gotKey = url, key
		return memory.New(), nil
	}

	cfg := testConfig()
	s, closeFn, err := openRemote(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	require.NoError(t, closeFn())

	cfg.Backend, cfg.DatabaseDSN = config.BackendPostgres, "postgres://db"
	_, closeFn, err = openRemote(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db", gotDSN)
	assert.Contains(t, gotTables, "articles")
	require.NoError(t, closeFn())
	assert.True(t, closed)

	cfg.Backend, cfg.SupabaseURL, cfg.SupabaseKey = config.BackendSupabase, "http://sb", "anon"
	_, _, err = openRemote(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://sb", gotURL)
	assert.Equal(t, "anon", gotKey)

	cfg.Backend = "mongo"
	_, _, err = openRemote(ctx, cfg)
	assert.Error(t, err)
}

func TestOpenRemote_ErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	origPG, origSB := openPostgres, dialSupabase
	t.Cleanup(func() { openPostgres, dialSupabase = origPG, origSB })

	boom := errors.New("boom")
	openPostgres = func(context.Context, string, ...string) (remote.Store, func() error, error) {
		return nil, nil, boom
	}
	dialSupabase = func(string, string) (remote.Store, error) { return nil, boom }

	cfg := testConfig()
	cfg.Backend = config.BackendPostgres
	_, _, err := openRemote(ctx, cfg)
	assert.ErrorIs(t, err, boom)

	cfg.Backend = config.BackendSupabase
	_, _, err = openRemote(ctx, cfg)
	assert.ErrorIs(t, err, boom)

	_, err = NewApp(ctx, cfg)
	assert.ErrorIs(t, err, boom)
}

func TestOpenSession(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	s, closeFn, err := openSession(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &session.Memory{}, s)
	require.NoError(t, closeFn(ctx))

	cfg.SessionDSN = filepath.Join(t.TempDir(), "s.db")
	s, closeFn, err = openSession(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &session.SQLite{}, s)
	require.NoError(t, s.SetItem(ctx, "k", []byte("v")))
	require.NoError(t, closeFn(ctx))

	cfg.SessionSecret = "secret"
	s, closeFn, err = openSession(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &session.Sealed{}, s)
	require.NoError(t, closeFn(ctx))
}

func TestNewOwnerAndUploader(t *testing.T) {
	cfg := testConfig()
	owner, tokens := newOwner(cfg)
	assert.Equal(t, identity.Static("u1"), owner)
	assert.Nil(t, tokens)

	cfg.UserID, cfg.AccessToken = "", "tok"
	owner, tokens = newOwner(cfg)
	require.NotNil(t, tokens)
	assert.Same(t, tokens, owner)
	assert.Equal(t, "tok", tokens.Token())

	assert.Nil(t, newUploader(cfg))
	cfg.S3Bucket = "drafts"
	assert.IsType(t, &uploads.S3Uploader{}, newUploader(cfg))
}
