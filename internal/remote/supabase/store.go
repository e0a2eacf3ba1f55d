// Package supabase is a remote.Store over the hosted backend's PostgREST
// interface. Each form table is a real table with id, owner_id, status,
// created_at and updated_at columns next to the form's own columns.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
	"github.com/dmitrijs2005/draftkeeper/internal/remote"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// invalid_text_representation, returned for malformed ids.
const codeInvalidText = "22P02"

// Querier is satisfied by *supabase.Client and *postgrest.Client.
type Querier interface {
	From(table string) *postgrest.QueryBuilder
}

// Store checks the caller's context before each request; the postgrest
// builders themselves take none.
type Store struct {
	q Querier
}

func New(q Querier) *Store { return &Store{q: q} }

// Dial builds a store for the project at url authenticated with key.
func Dial(url, key string) (*Store, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return New(client), nil
}

func (s *Store) FetchEntity(ctx context.Context, table, id string) (*remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewRemoteError("fetch", err)
	}

	body, _, err := s.q.From(table).Select("*", "", false).Eq(models.FieldID, id).Execute()
	if err != nil {
		return nil, wrap("fetch", err)
	}
	return firstRow("fetch", body)
}

func (s *Store) InsertRecord(ctx context.Context, table string, fields models.Fields) (*remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewRemoteError("insert", err)
	}

	values := fields.Without(models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt)
	body, _, err := s.q.From(table).Insert(values, false, "", "representation", "").Execute()
	if err != nil {
		return nil, wrap("insert", err)
	}
	rec, err := firstRow("insert", body)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewRemoteError("insert", fmt.Errorf("no row returned"))
		}
		return nil, err
	}
	return rec, nil
}

// UpdateRecord sends a PATCH; PostgREST leaves other columns unchanged.
func (s *Store) UpdateRecord(ctx context.Context, table, id string, fields models.Fields) (*remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewRemoteError("update", err)
	}

	values := fields.Without(models.FieldID, models.FieldCreatedAt)
	values[models.FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	body, _, err := s.q.From(table).Update(values, "representation", "").Eq(models.FieldID, id).Execute()
	if err != nil {
		return nil, wrap("update", err)
	}
	return firstRow("update", body)
}

func (s *Store) FindDraft(ctx context.Context, table, ownerID string, since time.Time) (*remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewRemoteError("find_draft", err)
	}

	body, _, err := s.q.From(table).
		Select("*", "", false).
		Eq(models.FieldOwnerID, ownerID).
		Eq(models.FieldStatus, models.StatusDraft).
		Gte(models.FieldUpdatedAt, since.UTC().Format(time.RFC3339Nano)).
		Order(models.FieldUpdatedAt, &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, wrap("find_draft", err)
	}
	return firstRow("find_draft", body)
}

func (s *Store) DeleteRecord(ctx context.Context, table, id string) error {
	if err := ctx.Err(); err != nil {
		return common.NewRemoteError("delete", err)
	}

	_, _, err := s.q.From(table).Delete("minimal", "").Eq(models.FieldID, id).Execute()
	if err != nil {
		if strings.Contains(err.Error(), codeInvalidText) {
			return nil
		}
		return common.NewRemoteError("delete", err)
	}
	return nil
}

func firstRow(op string, body []byte) (*remote.Record, error) {
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, common.NewRemoteError(op, fmt.Errorf("decode response: %w", err))
	}
	if len(rows) == 0 {
		return nil, common.ErrorNotFound
	}
	return toRecord(rows[0]), nil
}

func toRecord(row map[string]any) *remote.Record {
	f := models.Fields(row)
	rec := &remote.Record{
		ID:     f.Text(models.FieldID),
		Fields: f.Without(models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt),
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, f.Text(models.FieldCreatedAt))
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f.Text(models.FieldUpdatedAt))
	return rec
}

func wrap(op string, err error) error {
	if strings.Contains(err.Error(), codeInvalidText) {
		return common.ErrorNotFound
	}
	return common.NewRemoteError(op, err)
}
