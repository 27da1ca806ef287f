package overlay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// seedFile is the YAML layout of an overlay seed file.
type seedFile struct {
	Suggestions []seedEntry `yaml:"suggestions"`
}

type seedEntry struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Phone       string `yaml:"phone"`
	ImageURL    string `yaml:"image_url"`
	Location    string `yaml:"location"`
	EventDate   string `yaml:"event_date"`
	SuggestedBy string `yaml:"suggested_by"`
}

// LoadSeedFile reads seeds from path. An empty path yields no seeds.
func LoadSeedFile(path string) ([]domain.Suggestion, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open overlay seed: %w", err)
	}
	defer f.Close()

	seeds, err := ParseSeed(f)
	if err != nil {
		return nil, fmt.Errorf("overlay seed %s: %w", path, err)
	}
	return seeds, nil
}

// ParseSeed decodes and validates a YAML seed document.
func ParseSeed(r io.Reader) ([]domain.Suggestion, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	var errs []domain.FieldError
	seen := make(map[string]int, len(file.Suggestions))
	out := make([]domain.Suggestion, 0, len(file.Suggestions))
	for i, e := range file.Suggestions {
		prefix := fmt.Sprintf("suggestions[%d]", i)

		kind := domain.ItemKind(strings.ToLower(strings.TrimSpace(e.Kind)))
		if kind == "" {
			kind = domain.ItemKindResource
		}
		if !kind.IsValid() {
			errs = append(errs, domain.FieldError{Field: prefix + ".kind", Message: "must be resource or event"})
			continue
		}
		if strings.TrimSpace(e.Name) == "" {
			errs = append(errs, domain.FieldError{Field: prefix + ".name", Message: "required"})
			continue
		}
		if strings.TrimSpace(e.Category) == "" {
			errs = append(errs, domain.FieldError{Field: prefix + ".category", Message: "required"})
			continue
		}

		id := strings.TrimSpace(e.ID)
		if id != "" && !IsLocal(id) {
			id = LocalPrefix + id
		}
		if id != "" {
			if first, ok := seen[id]; ok {
				errs = append(errs, domain.FieldError{
					Field:   prefix + ".id",
					Message: fmt.Sprintf("duplicates suggestions[%d].id", first),
				})
				continue
			}
			seen[id] = i
		}

		fields := domain.Fields{
			Name:        strings.TrimSpace(e.Name),
			Category:    strings.TrimSpace(e.Category),
			Description: strings.TrimSpace(e.Description),
			URL:         optional(domain.NormalizeURL(e.URL)),
			Phone:       optional(e.Phone),
			ImageURL:    optional(e.ImageURL),
			Location:    optional(e.Location),
		}
		out = append(out, domain.Suggestion{
			ID:          id,
			Content:     domain.NewContent(kind, fields, strings.TrimSpace(e.EventDate)),
			Status:      domain.StatusPending,
			SuggestedBy: e.SuggestedBy,
		})
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return out, nil
}

func optional(s string) *string {
	return domain.TrimOrNil(&s)
}
