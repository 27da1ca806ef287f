package graphql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

func TestErrorPresenter_Codes(t *testing.T) {
	presenter := NewErrorPresenter(slog.Default())

	tests := []struct {
		name string
		err  error
		code string
		msg  string
	}{
		{"not found", fmt.Errorf("get suggestion: %w", domain.ErrNotFound), "NOT_FOUND", "not found"},
		{"unauthorized", domain.ErrUnauthorized, "UNAUTHENTICATED", "unauthorized"},
		{"forbidden", fmt.Errorf("open dashboard: %w", domain.ErrForbidden), "FORBIDDEN", "forbidden"},
		{"conflict", domain.ErrConflict, "CONFLICT", "conflict"},
		{"already exists", domain.ErrAlreadyExists, "CONFLICT", "conflict"},
		{"partial promotion", fmt.Errorf("approve: %w", domain.ErrPartialPromotion), "PARTIAL_PROMOTION", ""},
		{"unavailable", fmt.Errorf("catalog is loading: %w", domain.ErrUnavailable), "UNAVAILABLE", "service temporarily unavailable"},
		{"deadline", context.DeadlineExceeded, "UNAVAILABLE", "service temporarily unavailable"},
		{"unexpected", errors.New("pq: relation does not exist"), "INTERNAL", "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gqlErr := presenter(context.Background(), tt.err)
			if gqlErr.Extensions == nil {
				t.Fatal("expected extensions, got nil")
			}
			if code := gqlErr.Extensions["code"]; code != tt.code {
				t.Errorf("expected code %s, got %v", tt.code, code)
			}
			if tt.msg != "" && gqlErr.Message != tt.msg {
				t.Errorf("expected message %q, got %q", tt.msg, gqlErr.Message)
			}
		})
	}
}

func TestErrorPresenter_ValidationFields(t *testing.T) {
	presenter := NewErrorPresenter(slog.Default())

	err := domain.NewValidationErrors([]domain.FieldError{
		{Field: "name", Message: "required"},
		{Field: "eventDate", Message: "required for events"},
	})
	gqlErr := presenter(context.Background(), err)

	if code := gqlErr.Extensions["code"]; code != "VALIDATION" {
		t.Fatalf("expected code VALIDATION, got %v", code)
	}
	fields, ok := gqlErr.Extensions["fields"].([]map[string]string)
	if !ok {
		t.Fatalf("expected field list, got %T", gqlErr.Extensions["fields"])
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[1]["field"] != "eventDate" || fields[1]["message"] != "required for events" {
		t.Errorf("unexpected field error: %v", fields[1])
	}
}

func TestErrorPresenter_KeepsPathAndPlainGraphQLErrors(t *testing.T) {
	presenter := NewErrorPresenter(slog.Default())

	path := ast.Path{ast.PathName("approveSuggestion")}
	gqlErr := presenter(context.Background(), gqlerror.WrapPath(path, domain.ErrNotFound))
	if gqlErr.Path.String() != "approveSuggestion" {
		t.Errorf("expected path approveSuggestion, got %q", gqlErr.Path.String())
	}

	plain := gqlerror.ErrorPathf(path, "the requested element is null which the schema does not allow")
	gqlErr = presenter(context.Background(), plain)
	if gqlErr.Message != plain.Message {
		t.Errorf("plain GraphQL error rewritten to %q", gqlErr.Message)
	}
	if gqlErr.Extensions["code"] != nil {
		t.Errorf("plain GraphQL error got code %v", gqlErr.Extensions["code"])
	}
}

func TestRecoverFunc_HidesPanic(t *testing.T) {
	err := NewRecoverFunc(slog.Default())(context.Background(), "boom")
	if !errors.Is(err, errInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
