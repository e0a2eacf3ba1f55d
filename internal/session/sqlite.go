package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/draftkeeper/internal/dbx"
	"github.com/dmitrijs2005/draftkeeper/internal/session/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// SQLite implements Storage over the session_items table. Every operation
// is scoped to the session id given at construction.
type SQLite struct {
	db        dbx.DBTX
	sessionID string
	closer    func() error
}

// NewSQLite binds a storage to an already migrated database handle.
func NewSQLite(db dbx.DBTX, sessionID string) *SQLite {
	return &SQLite{db: db, sessionID: sessionID}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded session migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// OpenSQLite opens the SQLite database at dsn, migrates it and returns a
// storage scoped to sessionID. The caller must Close it to end the session.
func OpenSQLite(ctx context.Context, dsn, sessionID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	s := NewSQLite(db, sessionID)
	s.closer = db.Close
	return s, nil
}

func (r *SQLite) GetItem(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_items WHERE session_id = ? AND key = ?`, r.sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session item[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLite) SetItem(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_items (session_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, r.sessionID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session item[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLite) RemoveItem(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_items WHERE session_id = ? AND key = ?`, r.sessionID, key)
	if err != nil {
		return fmt.Errorf("failed to remove session item[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLite) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_items WHERE session_id = ?`, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close ends the session: its rows are removed and, when the storage owns
// the database, the database is closed.
func (r *SQLite) Close(ctx context.Context) error {
	err := r.Clear(ctx)
	if r.closer != nil {
		err = errors.Join(err, r.closer())
	}
	return err
}
