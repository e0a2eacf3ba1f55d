// Package postgres is a remote.Store over PostgreSQL. All form tables share
// one records table; the table name becomes the collection column, the
// owner and status columns are indexed and every other field lives in a
// JSONB document.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/dbx"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/dmitrijs2005/draftkeeper/internal/remote/postgres/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// invalid_text_representation, raised for malformed uuids.
const codeInvalidText = "22P02"

const selectColumns = `id, owner_id, status, data, created_at, updated_at`

var newID = uuid.NewString

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

type Store struct {
	db     *sql.DB
	tables map[string]struct{}
}

// New returns a store over db limited to the given tables. No tables means
// any table name is accepted.
func New(db *sql.DB, tables ...string) *Store {
	s := &Store{db: db}
	if len(tables) > 0 {
		s.tables = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			s.tables[t] = struct{}{}
		}
	}
	return s
}

// Open connects to dsn with the pgx driver and runs the migrations.
func Open(ctx context.Context, dsn string, tables ...string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping remote db: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate remote db: %w", err)
	}
	return New(db, tables...), nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) FetchEntity(ctx context.Context, table, id string) (*remote.Record, error) {
	if err := s.checkTable("fetch", table); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM records WHERE collection = $1 AND id = $2`, table, id)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, wrap("fetch", err)
	}
	return rec, nil
}

func (s *Store) InsertRecord(ctx context.Context, table string, fields models.Fields) (*remote.Record, error) {
	if err := s.checkTable("insert", table); err != nil {
		return nil, err
	}

	rec := &remote.Record{ID: newID(), Fields: keepColumns(fields)}
	data, err := encodeData(fields)
	if err != nil {
		return nil, common.NewRemoteError("insert", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO records (id, collection, owner_id, status, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, rec.ID, table, rec.OwnerID(), rec.Status(), data).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, common.NewRemoteError("insert", err)
	}
	return rec, nil
}

// UpdateRecord merges fields into the stored row under a row lock.
func (s *Store) UpdateRecord(ctx context.Context, table, id string, fields models.Fields) (*remote.Record, error) {
	if err := s.checkTable("update", table); err != nil {
		return nil, err
	}

	var out *remote.Record
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+selectColumns+` FROM records WHERE collection = $1 AND id = $2 FOR UPDATE`, table, id)
		cur, err := scanRecord(row)
		if err != nil {
			return err
		}

		cur.Fields = cur.Fields.Merge(keepColumns(fields))
		data, err := encodeData(cur.Fields)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE records SET owner_id = $1, status = $2, data = $3, updated_at = now()
			WHERE id = $4
			RETURNING updated_at
		`, cur.OwnerID(), cur.Status(), data, id).Scan(&cur.UpdatedAt)
		if err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, wrap("update", err)
	}
	return out, nil
}

func (s *Store) FindDraft(ctx context.Context, table, ownerID string, since time.Time) (*remote.Record, error) {
	if err := s.checkTable("find_draft", table); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+` FROM records
		WHERE collection = $1 AND owner_id = $2 AND status = $3 AND updated_at >= $4
		ORDER BY updated_at DESC
		LIMIT 1
	`, table, ownerID, models.StatusDraft, since)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, wrap("find_draft", err)
	}
	return rec, nil
}

func (s *Store) DeleteRecord(ctx context.Context, table, id string) error {
	if err := s.checkTable("delete", table); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = $1 AND id = $2`, table, id)
	if err != nil {
		if isInvalidText(err) {
			return nil
		}
		return common.NewRemoteError("delete", err)
	}
	return nil
}

func (s *Store) checkTable(op, table string) error {
	if s.tables == nil {
		return nil
	}
	if _, ok := s.tables[table]; !ok {
		return common.NewRemoteError(op, fmt.Errorf("%w: %s", common.ErrUnknownTable, table))
	}
	return nil
}

func scanRecord(row *sql.Row) (*remote.Record, error) {
	var (
		rec           remote.Record
		owner, status string
		data          []byte
	)
	if err := row.Scan(&rec.ID, &owner, &status, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	rec.Fields = models.Fields{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", rec.ID, err)
		}
	}
	rec.Fields[models.FieldOwnerID] = owner
	rec.Fields[models.FieldStatus] = status
	return &rec, nil
}

// keepColumns drops the columns the database manages.
func keepColumns(f models.Fields) models.Fields {
	return f.Without(models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt)
}

// encodeData renders the JSONB document: every field except the columns.
func encodeData(f models.Fields) ([]byte, error) {
	return json.Marshal(remote.ContentFields(f))
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return common.ErrorNotFound
	}
	return common.NewRemoteError(op, err)
}

func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidText
}
