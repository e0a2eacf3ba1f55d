package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ remote.Store = (*Store)(nil)

var (
	t0 = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func newStoreWithMock(t *testing.T, tables ...string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, tables...), mock
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "status", "data", "created_at", "updated_at"})
}

func TestFetchEntity_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM records WHERE collection = $1 AND id = $2`)).
		WithArgs("articles", "a-1").
		WillReturnRows(recordRows().AddRow("a-1", "u1", "published", []byte(`{"title":"Hi"}`), t0, t1))

	rec, err := s.FetchEntity(context.Background(), "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "a-1", rec.ID)
	assert.Equal(t, models.Fields{"title": "Hi", "owner_id": "u1", "status": "published"}, rec.Fields)
	assert.Equal(t, t1, rec.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEntity_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM records WHERE collection`).
		WithArgs("articles", "missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM records WHERE collection`).
		WithArgs("articles", "not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: codeInvalidText})

	_, err := s.FetchEntity(context.Background(), "articles", "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.FetchEntity(context.Background(), "articles", "not-a-uuid")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFetchEntity_DBErrorIsRemoteError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`FROM records`).WillReturnError(errors.New("db is down"))

	_, err := s.FetchEntity(context.Background(), "articles", "a-1")
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "fetch", re.Op)
	assert.Contains(t, re.Message, "db is down")
}

func TestFetchEntity_CorruptDocument(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`FROM records`).
		WillReturnRows(recordRows().AddRow("a-1", "u1", "draft", []byte(`{broken`), t0, t0))

	_, err := s.FetchEntity(context.Background(), "articles", "a-1")
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
}

func TestInsertRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)
	orig := newID
	t.Cleanup(func() { newID = orig })
	newID = func() string { return "11111111-1111-1111-1111-111111111111" }

	mock.ExpectQuery(`INSERT INTO records .* RETURNING created_at, updated_at`).
		WithArgs("11111111-1111-1111-1111-111111111111", "articles", "u1", "draft", []byte(`{"title":"Hello"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(t0, t0))

	rec, err := s.InsertRecord(context.Background(), "articles", models.Fields{
		"title": "Hello", "owner_id": "u1", "status": "draft", "id": "client-side",
	})
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", rec.ID)
	assert.Equal(t, models.Fields{"title": "Hello", "owner_id": "u1", "status": "draft"}, rec.Fields)
	assert.Equal(t, t0, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecord_Error(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(`INSERT INTO records`).WillReturnError(errors.New("permission denied"))

	_, err := s.InsertRecord(context.Background(), "articles", models.Fields{"title": "x"})
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "insert", re.Op)
}

func TestUpdateRecord_MergesUnderLock(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM records WHERE collection = \$1 AND id = \$2 FOR UPDATE`).
		WithArgs("articles", "a-1").
		WillReturnRows(recordRows().AddRow("a-1", "u1", "draft", []byte(`{"content":"body","title":"Old"}`), t0, t0))
	mock.ExpectQuery(`UPDATE records SET owner_id = \$1, status = \$2, data = \$3, updated_at = now\(\)`).
		WithArgs("u1", "submitted", []byte(`{"content":"body","title":"New"}`), "a-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(t1))
	mock.ExpectCommit()

	rec, err := s.UpdateRecord(context.Background(), "articles", "a-1", models.Fields{"title": "New", "status": "submitted"})
	require.NoError(t, err)
	assert.Equal(t, models.Fields{"title": "New", "content": "body", "owner_id": "u1", "status": "submitted"}, rec.Fields)
	assert.Equal(t, t1, rec.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRecord_MissingRowRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("articles", "gone").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateRecord(context.Background(), "articles", "gone", models.Fields{"title": "x"})
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRecord_BeginError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := s.UpdateRecord(context.Background(), "articles", "a-1", models.Fields{})
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "update", re.Op)
}

func TestFindDraft(t *testing.T) {
	s, mock := newStoreWithMock(t)
	since := t0.Add(-24 * time.Hour)

	mock.ExpectQuery(`status = \$3 AND updated_at >= \$4\s+ORDER BY updated_at DESC\s+LIMIT 1`).
		WithArgs("articles", "u1", "draft", since).
		WillReturnRows(recordRows().AddRow("d-1", "u1", "draft", []byte(`{"title":"wip"}`), t0, t0))
	mock.ExpectQuery(`ORDER BY updated_at DESC`).
		WithArgs("articles", "u2", "draft", since).
		WillReturnError(sql.ErrNoRows)

	rec, err := s.FindDraft(context.Background(), "articles", "u1", since)
	require.NoError(t, err)
	assert.Equal(t, "d-1", rec.ID)
	assert.Equal(t, "wip", rec.Fields.Text("title"))

	_, err = s.FindDraft(context.Background(), "articles", "u2", since)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRecord(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`DELETE FROM records WHERE collection = \$1 AND id = \$2`).
		WithArgs("articles", "a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM records`).
		WithArgs("articles", "a-2").
		WillReturnError(errors.New("db is down"))

	require.NoError(t, s.DeleteRecord(context.Background(), "articles", "a-1"))

	err := s.DeleteRecord(context.Background(), "articles", "a-2")
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownTable(t *testing.T) {
	s, mock := newStoreWithMock(t, "articles")

	_, err := s.FetchEntity(context.Background(), "users", "1")
	require.ErrorIs(t, err, common.ErrUnknownTable)
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)

	require.ErrorIs(t, s.DeleteRecord(context.Background(), "users", "1"), common.ErrUnknownTable)

	// no query reaches the database
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesSeam(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)
}
