package moderation

import (
	"strings"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// PublishInput holds the fields of a manually published item.
type PublishInput struct {
	Kind        domain.ItemKind
	Name        string
	Category    string
	Description string
	Location    string
	EventDate   string
	URL         *string
	Phone       *string
	ImageURL    *string
}

// Validate checks all fields and collects all errors.
func (i PublishInput) Validate() error {
	var errs []domain.FieldError

	if !i.Kind.IsValid() {
		errs = append(errs, domain.FieldError{Field: "kind", Message: "must be resource or event"})
	}

	required := []struct {
		field string
		value string
		max   int
	}{
		{"name", i.Name, 200},
		{"category", i.Category, 100},
		{"location", i.Location, 300},
		{"description", i.Description, 2000},
	}
	for _, r := range required {
		v := strings.TrimSpace(r.value)
		if v == "" {
			errs = append(errs, domain.FieldError{Field: r.field, Message: "required"})
			continue
		}
		if len(v) > r.max {
			errs = append(errs, domain.FieldError{Field: r.field, Message: "too long"})
		}
	}

	if i.URL != nil && len(*i.URL) > 2048 {
		errs = append(errs, domain.FieldError{Field: "url", Message: "max 2048 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// content builds the trimmed, normalized payload.
func (i PublishInput) content() domain.Content {
	location := strings.TrimSpace(i.Location)
	f := domain.Fields{
		Name:        strings.TrimSpace(i.Name),
		Category:    strings.TrimSpace(i.Category),
		Description: strings.TrimSpace(i.Description),
		Phone:       domain.TrimOrNil(i.Phone),
		ImageURL:    domain.TrimOrNil(i.ImageURL),
		Location:    &location,
	}
	if i.URL != nil {
		if u := domain.NormalizeURL(*i.URL); u != "" {
			f.URL = &u
		}
	}
	return domain.NewContent(i.Kind, f, strings.TrimSpace(i.EventDate))
}
