// Package models defines the draft data model shared by every draftkeeper
// component: form types, draft keys, field mappings and local draft records.
package models

import (
	"fmt"
	"net/url"
	"time"
)

// FormType tags the kind of form a draft belongs to.
type FormType string

const (
	FormArticle     FormType = "article"
	FormCandidature FormType = "candidature"
	FormAO          FormType = "ao"
	FormInterview   FormType = "interview"
	FormTestimonial FormType = "testimonial"
	FormDocument    FormType = "document"
)

// Remote record status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusSubmitted = "submitted"
	StatusAbandoned = "abandoned"
)

// Reserved remote column names. They are managed by the stores and the
// scheduler rather than by form fields.
const (
	FieldID        = "id"
	FieldOwnerID   = "owner_id"
	FieldStatus    = "status"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// NewEntity is the entity segment used in keys of forms that create a new
// entity.
const NewEntity = "new"

// DraftKey identifies one logical form instance: the same form type, acting
// user and entity always produce the same key.
type DraftKey struct {
	FormType FormType
	UserID   string
	EntityID string
}

// NewDraftKey builds a key. An empty entityID denotes a creation form.
func NewDraftKey(formType FormType, userID, entityID string) DraftKey {
	return DraftKey{FormType: formType, UserID: userID, EntityID: entityID}
}

// String renders the key as stored in session storage,
// e.g. "draft:article:u42:new". Segments are query-escaped so a ':' inside
// an id cannot make two keys collide.
func (k DraftKey) String() string {
	entity := k.EntityID
	if entity == "" {
		entity = NewEntity
	}
	return fmt.Sprintf("draft:%s:%s:%s",
		url.QueryEscape(string(k.FormType)), url.QueryEscape(k.UserID), url.QueryEscape(entity))
}

// IsNew reports whether the key belongs to a creation form.
func (k DraftKey) IsNew() bool {
	return k.EntityID == "" || k.EntityID == NewEntity
}

// WithEntity returns a copy of k re-keyed to entityID.
func (k DraftKey) WithEntity(entityID string) DraftKey {
	k.EntityID = entityID
	return k
}

// DraftRecord is the locally cached state of one form.
//
// Status is the status of the remote row the draft belongs to, as last
// known locally; "" when there is no row yet or it is unknown.
type DraftRecord struct {
	Key     string    `json:"key"`
	Status  string    `json:"status,omitempty"`
	Fields  Fields    `json:"fields"`
	SavedAt time.Time `json:"saved_at"`
}

// FileRef is the in-memory value of a file input. It is never serialized
// into a local draft; see the form catalog's excluded fields.
type FileRef struct {
	Path string
}
