package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

// Reject deletes a pending suggestion. No live item is ever created.
func (s *Service) Reject(ctx context.Context, mod domain.Moderator, sug domain.Suggestion) (Result, error) {
	if err := authorize(mod); err != nil {
		return Result{}, err
	}
	if sug.Content == nil {
		return Result{}, domain.NewValidationError("suggestion", "required")
	}

	if overlay.IsLocal(sug.ID) {
		if !s.overlay.RemoveSuggestion(sug.ID) {
			return withSuggestion(alreadyHandled(ActionReject, "suggestion no longer exists"), sug.ID), nil
		}
		s.recordRejection(ctx, mod, sug)
		return withSuggestion(applied(ActionReject, "rejected locally"), sug.ID), nil
	}

	if !sug.IsPending() {
		return withSuggestion(noop(ActionReject, "only pending suggestions can be rejected"), sug.ID), nil
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	coll := sug.Kind().SuggestionCollection()
	doc, err := s.store.Get(ctx, coll, sug.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return withSuggestion(alreadyHandled(ActionReject, "suggestion no longer exists"), sug.ID), nil
	}
	if err != nil {
		return Result{}, storeErr("reject: get suggestion", err)
	}
	current, err := docstore.DecodeSuggestion(sug.Kind(), doc)
	if err != nil {
		return Result{}, fmt.Errorf("reject %s: %w", sug.ID, err)
	}
	if !current.IsPending() {
		return withSuggestion(noop(ActionReject, "suggestion was already approved"), sug.ID), nil
	}

	if err := s.store.Delete(ctx, coll, sug.ID); err != nil {
		return Result{}, storeErr("reject: delete suggestion", err)
	}

	s.recordRejection(ctx, mod, current)
	return withSuggestion(applied(ActionReject, "rejected"), sug.ID), nil
}

func (s *Service) recordRejection(ctx context.Context, mod domain.Moderator, sug domain.Suggestion) {
	s.history.record(HistoryEntry{
		Action:       ActionReject,
		Kind:         sug.Kind(),
		SuggestionID: sug.ID,
		Name:         sug.Content.Base().Name,
		ModeratorID:  mod.UID,
		At:           s.now(),
	})

	s.log.InfoContext(ctx, "suggestion rejected",
		slog.String("moderator_id", mod.UID),
		slog.String("kind", string(sug.Kind())),
		slog.String("suggestion_id", sug.ID),
	)
}
