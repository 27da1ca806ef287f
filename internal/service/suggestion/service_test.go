package suggestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/heartmarshall/cypress-connect/internal/adapter/memstore"
	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

var resident = domain.Moderator{UID: "U1", Email: "resident@example.org", Role: domain.UserRoleResident}

func ptr(s string) *string { return &s }

func TestSubmit_Resource(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	svc := NewService(slog.Default(), store)

	sug, err := svc.Submit(context.Background(), resident, SubmitInput{
		Kind:        domain.ItemKindResource,
		Name:        "  Cypress Food Bank ",
		Category:    "Food",
		Description: "Free groceries every Saturday",
		URL:         ptr("cypressfoodbank.org"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sug.ID == "" {
		t.Fatal("id not assigned")
	}

	doc, err := store.Get(context.Background(), domain.CollectionResourceSuggestions, sug.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	stored, err := docstore.DecodeSuggestion(domain.ItemKindResource, doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !stored.IsPending() {
		t.Errorf("status = %s, want pending", stored.Status)
	}
	if stored.Content.Base().Name != "Cypress Food Bank" {
		t.Errorf("name = %q", stored.Content.Base().Name)
	}
	if u := stored.Content.Base().URL; u == nil || *u != "https://cypressfoodbank.org" {
		t.Errorf("url = %v", u)
	}
	if stored.SuggestedBy != "U1" || stored.SuggestedByEmail != "resident@example.org" {
		t.Errorf("suggestedBy = %q/%q", stored.SuggestedBy, stored.SuggestedByEmail)
	}
	if stored.SubmittedAt.IsZero() {
		t.Error("submittedAt should be set by the store")
	}
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  SubmitInput
		fields []string
	}{
		{
			name:   "missing resource fields",
			input:  SubmitInput{Kind: domain.ItemKindResource},
			fields: []string{"name", "category", "description"},
		},
		{
			name:   "event needs date and location",
			input:  SubmitInput{Kind: domain.ItemKindEvent, Name: "Fair", Category: "Festival", Description: "d"},
			fields: []string{"eventDate", "location"},
		},
		{
			name:   "unknown category",
			input:  SubmitInput{Kind: domain.ItemKindResource, Name: "A", Category: "Festival", Description: "d"},
			fields: []string{"category"},
		},
		{
			name:   "bad kind",
			input:  SubmitInput{Kind: "place", Name: "A", Category: "Food", Description: "d"},
			fields: []string{"kind"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := memstore.New()
			svc := NewService(slog.Default(), store)

			_, err := svc.Submit(context.Background(), resident, tt.input)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			got := map[string]bool{}
			for _, fe := range ve.Errors {
				got[fe.Field] = true
			}
			for _, f := range tt.fields {
				if !got[f] {
					t.Errorf("missing error for %q in %v", f, ve.Errors)
				}
			}
			if store.Writes() != 0 {
				t.Error("invalid input must not write")
			}
		})
	}
}

func TestSubmit_Event(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	svc := NewService(slog.Default(), store)

	sug, err := svc.Submit(context.Background(), resident, SubmitInput{
		Kind:        domain.ItemKindEvent,
		Name:        "Spring Fair",
		Category:    "Festival",
		Description: "Music and food trucks",
		Location:    ptr("Cypress Park"),
		EventDate:   "2026-05-03T18:00",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.Len(domain.CollectionEventSuggestions) != 1 {
		t.Fatal("event suggestion not stored")
	}
	if domain.EventDateOf(sug.Content) != "2026-05-03T18:00" {
		t.Errorf("event date = %q", domain.EventDateOf(sug.Content))
	}
}

func TestSubmit_RequiresIdentity(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	svc := NewService(slog.Default(), store)

	_, err := svc.Submit(context.Background(), domain.Moderator{}, SubmitInput{Kind: domain.ItemKindResource})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestSubmit_StoreError(t *testing.T) {
	t.Parallel()
	store := memstore.New()
	store.FailNext("create", domain.CollectionResourceSuggestions, domain.ErrUnavailable)
	svc := NewService(slog.Default(), store)

	_, err := svc.Submit(context.Background(), resident, SubmitInput{
		Kind: domain.ItemKindResource, Name: "A", Category: "Food", Description: "d",
	})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
