// Package remote defines the Remote Data Store consumed by the draft
// subsystem and the record type it exchanges.
//
// Backends live in subpackages: memory (in-process), postgres (database/sql
// over pgx) and supabase (PostgREST). Every backend returns
// common.ErrorNotFound for missing rows and *common.RemoteError for any
// other failure.
package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/models"
)

// Record is one row of a remote table.
type Record struct {
	ID        string
	Fields    models.Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status returns the record's status column.
func (r *Record) Status() string { return r.Fields.Text(models.FieldStatus) }

// OwnerID returns the record's owner column.
func (r *Record) OwnerID() string { return r.Fields.Text(models.FieldOwnerID) }

// Store is the remote relational backend.
type Store interface {
	// FetchEntity returns the row id of table or common.ErrorNotFound.
	FetchEntity(ctx context.Context, table, id string) (*Record, error)

	// InsertRecord creates a row and returns it with its assigned id.
	InsertRecord(ctx context.Context, table string, fields models.Fields) (*Record, error)

	// UpdateRecord overlays fields onto row id and returns the result.
	// Columns absent from fields are left unchanged.
	UpdateRecord(ctx context.Context, table, id string, fields models.Fields) (*Record, error)

	// FindDraft returns the most recently updated row of table owned by
	// ownerID, in draft status and updated at or after since, or
	// common.ErrorNotFound.
	FindDraft(ctx context.Context, table, ownerID string, since time.Time) (*Record, error)

	// DeleteRecord removes row id. Deleting a missing row is not an error.
	DeleteRecord(ctx context.Context, table, id string) error
}

// ContentFields strips the reserved columns from fields, leaving only the
// values a form edits.
func ContentFields(fields models.Fields) models.Fields {
	return fields.Without(
		models.FieldID,
		models.FieldOwnerID,
		models.FieldStatus,
		models.FieldCreatedAt,
		models.FieldUpdatedAt,
	)
}
