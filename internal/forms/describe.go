package forms

import (
	"strconv"

	"github.com/Annany2002/nebula-uploads/internal/domain"
)

// FieldDescription is the render-time view of a field.
type FieldDescription struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Kind        Kind     `json:"kind"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Choices     []Choice `json:"choices,omitempty"`
}

// Describe lists the schema's fields, filling database choices from the candidates.
func (s *Schema) Describe(databases []domain.DatabaseTarget) []FieldDescription {
	out := make([]FieldDescription, 0, len(s.Fields))
	for _, f := range s.Fields {
		d := FieldDescription{
			Name:        f.Name,
			Label:       f.Label,
			Description: f.Description,
			Kind:        f.Kind,
			Required:    f.Required,
			Default:     cloneDefault(f.Default),
			Choices:     f.Choices,
		}
		if f.Kind == KindDatabase {
			d.Choices = DatabaseChoices(databases)
		}
		out = append(out, d)
	}
	return out
}

// DatabaseChoices represents each database by its id and displays it by name.
func DatabaseChoices(databases []domain.DatabaseTarget) []Choice {
	choices := make([]Choice, 0, len(databases))
	for _, db := range databases {
		choices = append(choices, Choice{Value: strconv.FormatInt(db.ID, 10), Label: db.Name})
	}
	return choices
}
