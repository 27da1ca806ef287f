package suggestion

import (
	"slices"
	"strings"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// SubmitInput is a resident's proposed resource or event.
type SubmitInput struct {
	Kind        domain.ItemKind
	Name        string
	Category    string
	Description string
	Location    *string
	EventDate   string
	URL         *string
	Phone       *string
	ImageURL    *string
}

// Validate checks all fields and collects all errors.
func (i SubmitInput) Validate() error {
	var errs []domain.FieldError

	if !i.Kind.IsValid() {
		errs = append(errs, domain.FieldError{Field: "kind", Message: "must be resource or event"})
	}

	name := strings.TrimSpace(i.Name)
	if name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	} else if len(name) > 200 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "max 200 characters"})
	}

	category := strings.TrimSpace(i.Category)
	if category == "" {
		errs = append(errs, domain.FieldError{Field: "category", Message: "required"})
	} else if i.Kind.IsValid() && !slices.Contains(domain.Categories(i.Kind), category) {
		errs = append(errs, domain.FieldError{Field: "category", Message: "unknown category"})
	}

	if strings.TrimSpace(i.Description) == "" {
		errs = append(errs, domain.FieldError{Field: "description", Message: "required"})
	} else if len(i.Description) > 2000 {
		errs = append(errs, domain.FieldError{Field: "description", Message: "max 2000 characters"})
	}

	if i.Kind == domain.ItemKindEvent {
		if strings.TrimSpace(i.EventDate) == "" {
			errs = append(errs, domain.FieldError{Field: "eventDate", Message: "required"})
		}
		if domain.TrimOrNil(i.Location) == nil {
			errs = append(errs, domain.FieldError{Field: "location", Message: "required"})
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

func (i SubmitInput) content() domain.Content {
	f := domain.Fields{
		Name:        strings.TrimSpace(i.Name),
		Category:    strings.TrimSpace(i.Category),
		Description: strings.TrimSpace(i.Description),
		Location:    domain.TrimOrNil(i.Location),
		Phone:       domain.TrimOrNil(i.Phone),
		ImageURL:    domain.TrimOrNil(i.ImageURL),
	}
	if i.URL != nil {
		if u := domain.NormalizeURL(*i.URL); u != "" {
			f.URL = &u
		}
	}
	return domain.NewContent(i.Kind, f, strings.TrimSpace(i.EventDate))
}
