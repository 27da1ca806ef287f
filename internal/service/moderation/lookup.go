package moderation

import (
	"context"
	"fmt"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

// Suggestion resolves a suggestion by id, consulting the overlay first.
func (s *Service) Suggestion(ctx context.Context, kind domain.ItemKind, id string) (domain.Suggestion, error) {
	if overlay.IsLocal(id) {
		sug, ok := s.overlay.Suggestion(id)
		if !ok || sug.Kind() != kind {
			return domain.Suggestion{}, fmt.Errorf("suggestion %s: %w", id, domain.ErrNotFound)
		}
		return sug, nil
	}

	doc, err := s.store.Get(ctx, kind.SuggestionCollection(), id)
	if err != nil {
		return domain.Suggestion{}, storeErr("get suggestion", err)
	}
	return docstore.DecodeSuggestion(kind, doc)
}

// LiveItem resolves a live item by id, consulting the overlay first.
func (s *Service) LiveItem(ctx context.Context, kind domain.ItemKind, id string) (domain.LiveItem, error) {
	if overlay.IsLocal(id) {
		item, ok := s.overlay.LiveItem(id)
		if !ok || item.Kind() != kind {
			return domain.LiveItem{}, fmt.Errorf("live item %s: %w", id, domain.ErrNotFound)
		}
		return item, nil
	}

	doc, err := s.store.Get(ctx, kind.LiveCollection(), id)
	if err != nil {
		return domain.LiveItem{}, storeErr("get live item", err)
	}
	return docstore.DecodeLiveItem(kind, doc)
}
