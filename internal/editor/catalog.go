package editor

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/draftkeeper/internal/autosave"
	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/dmitrijs2005/draftkeeper/internal/models"
)

// Spec describes one form type.
type Spec struct {
	Type  models.FormType
	Table string
	// Defaults are the base values of an empty form; their keys are the
	// form's fields.
	Defaults models.Fields
	// Files are file inputs. They never enter a draft; Attach uploads them
	// and stores the storage key in the sibling "<field>_key".
	Files        []string
	HasContent   autosave.ContentCheck
	SubmitStatus string
	Autosave     bool
}

// IsFile reports whether field is a file input of the form.
func (s Spec) IsFile(field string) bool { return slices.Contains(s.Files, field) }

// Fields returns the editable field names in order.
func (s Spec) Fields() []string {
	names := make([]string, 0, len(s.Defaults)+len(s.Files))
	for k := range s.Defaults {
		names = append(names, k)
	}
	names = append(names, s.Files...)
	slices.Sort(names)
	return names
}

var catalog = map[models.FormType]Spec{
	models.FormArticle: {
		Type:  models.FormArticle,
		Table: "articles",
		Defaults: models.Fields{
			"title": "", "content": "", "excerpt": "", "category": "", "cover_image_key": "",
		},
		Files:        []string{"cover_image"},
		HasContent:   autosave.TitleOrBody("title", "content", 10),
		SubmitStatus: models.StatusPublished,
		Autosave:     true,
	},
	models.FormCandidature: {
		Type:  models.FormCandidature,
		Table: "candidatures",
		Defaults: models.Fields{
			"ao_id": "", "cover_letter": "", "daily_rate": "", "availability": "", "cv_file_key": "",
		},
		Files:        []string{"cv_file"},
		HasContent:   autosave.TitleOrBody("", "cover_letter", 10),
		SubmitStatus: models.StatusSubmitted,
		Autosave:     true,
	},
	models.FormAO: {
		Type:  models.FormAO,
		Table: "aos",
		Defaults: models.Fields{
			"title": "", "description": "", "location": "", "contract_type": "", "daily_rate": "", "attachment_key": "",
		},
		Files:        []string{"attachment"},
		HasContent:   autosave.TitleOrBody("title", "description", 10),
		SubmitStatus: models.StatusPublished,
		Autosave:     true,
	},
	models.FormInterview: {
		Type:  models.FormInterview,
		Table: "interviews",
		Defaults: models.Fields{
			"candidature_id": "", "scheduled_at": "", "location": "", "notes": "",
		},
		HasContent:   autosave.TitleOrBody("scheduled_at", "notes", 10),
		SubmitStatus: models.StatusSubmitted,
		Autosave:     true,
	},
	models.FormTestimonial: {
		Type:  models.FormTestimonial,
		Table: "testimonials",
		Defaults: models.Fields{
			"author_name": "", "role": "", "content": "", "rating": "",
		},
		HasContent:   autosave.TitleOrBody("", "content", 10),
		SubmitStatus: models.StatusSubmitted,
		Autosave:     true,
	},
	models.FormDocument: {
		Type:  models.FormDocument,
		Table: "documents",
		Defaults: models.Fields{
			"title": "", "description": "", "attachment_key": "",
		},
		Files:        []string{"attachment"},
		HasContent:   autosave.TitleOrBody("title", "description", 10),
		SubmitStatus: models.StatusPublished,
		Autosave:     false,
	},
}

// Lookup returns the Spec registered for form type t.
func Lookup(t models.FormType) (Spec, error) {
	s, ok := catalog[t]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", common.ErrUnknownForm, t)
	}
	s.Defaults = s.Defaults.Clone()
	return s, nil
}

// Types returns every known form type, sorted.
func Types() []models.FormType {
	out := make([]models.FormType, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Tables returns the remote table of every form type, sorted.
func Tables() []string {
	out := make([]string, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, s.Table)
	}
	slices.Sort(out)
	return out
}
