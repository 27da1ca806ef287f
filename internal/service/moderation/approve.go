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

// Approve promotes a pending suggestion into a live item of kind target.
//
// The live item is written first under PromotionID, then the suggestion is
// marked approved. If the second write fails the error wraps
// domain.ErrPartialPromotion and calling Approve again completes it.
func (s *Service) Approve(ctx context.Context, mod domain.Moderator, sug domain.Suggestion, target domain.ItemKind) (Result, error) {
	if err := authorize(mod); err != nil {
		return Result{}, err
	}
	if !target.IsValid() {
		return Result{}, domain.NewValidationError("kind", "must be resource or event")
	}
	if sug.Content == nil || sug.Kind() != target {
		return Result{}, domain.NewValidationError("kind", "does not match the suggestion")
	}

	if overlay.IsLocal(sug.ID) {
		return s.approveLocal(ctx, mod, sug)
	}

	if !sug.IsPending() {
		return withSuggestion(noop(ActionApprove, "suggestion is not pending"), sug.ID), nil
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	// Re-read right before writing; the caller's copy may be stale.
	coll := target.SuggestionCollection()
	doc, err := s.store.Get(ctx, coll, sug.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return withSuggestion(alreadyHandled(ActionApprove, "suggestion no longer exists"), sug.ID), nil
	}
	if err != nil {
		return Result{}, storeErr("approve: get suggestion", err)
	}
	current, err := docstore.DecodeSuggestion(target, doc)
	if err != nil {
		return Result{}, fmt.Errorf("approve %s: %w", sug.ID, err)
	}

	liveID := PromotionID(target, sug.ID)
	liveColl := target.LiveCollection()

	// Another moderator's promotion still in flight is finished here but
	// stays theirs.
	lost := false
	liveDoc, err := s.store.Get(ctx, liveColl, liveID)
	switch {
	case err == nil:
		if !current.IsPending() {
			return withSuggestion(alreadyHandled(ActionApprove, "suggestion was already approved"), sug.ID), nil
		}
		live, derr := docstore.DecodeLiveItem(target, liveDoc)
		lost = derr != nil || live.ApprovedBy != mod.UID
		s.log.WarnContext(ctx, "resuming partial promotion",
			slog.String("suggestion_id", sug.ID),
			slog.String("live_item_id", liveID),
			slog.Bool("other_moderator", lost),
		)

	case errors.Is(err, domain.ErrNotFound):
		if !current.IsPending() {
			return withSuggestion(alreadyHandled(ActionApprove, "suggestion was already approved"), sug.ID), nil
		}
		source := sug.ID
		item := domain.LiveItem{
			ID:                 liveID,
			Content:            current.Content,
			Status:             domain.StatusApproved,
			ApprovedBy:         mod.UID,
			ApprovedByEmail:    mod.Email,
			SourceSuggestionID: &source,
		}
		err := s.store.CreateWithID(ctx, liveColl, liveID, docstore.EncodeLiveItem(item))
		if errors.Is(err, domain.ErrAlreadyExists) {
			return withSuggestion(alreadyHandled(ActionApprove, "another moderator approved this suggestion"), sug.ID), nil
		}
		if err != nil {
			return Result{}, storeErr("approve: publish live item", err)
		}

	default:
		return Result{}, storeErr("approve: get live item", err)
	}

	err = s.store.Update(ctx, coll, sug.ID, map[string]any{
		docstore.FieldStatus: string(domain.StatusApproved),
	})
	if errors.Is(err, domain.ErrNotFound) {
		// Rejected while we were publishing: take the live item back down.
		if derr := s.store.Delete(ctx, liveColl, liveID); derr != nil {
			return Result{}, storeErr("approve: withdraw live item", derr)
		}
		s.log.InfoContext(ctx, "approval withdrawn after concurrent rejection",
			slog.String("suggestion_id", sug.ID),
		)
		return withSuggestion(alreadyHandled(ActionApprove, "suggestion was rejected during approval"), sug.ID), nil
	}
	if err != nil {
		res := withSuggestion(Result{Action: ActionApprove, Outcome: OutcomeApplied, Message: "published; retry to finish approval"}, sug.ID)
		res.LiveItemID = liveID
		return res, fmt.Errorf("approve %s: mark approved: %w: %w", sug.ID, domain.ErrPartialPromotion, err)
	}

	if lost {
		res := withSuggestion(alreadyHandled(ActionApprove, "another moderator approved this suggestion"), sug.ID)
		res.LiveItemID = liveID
		return res, nil
	}

	s.history.record(HistoryEntry{
		Action:       ActionApprove,
		Kind:         target,
		SuggestionID: sug.ID,
		LiveItemID:   liveID,
		Name:         current.Content.Base().Name,
		ModeratorID:  mod.UID,
		At:           s.now(),
	})

	s.log.InfoContext(ctx, "suggestion approved",
		slog.String("moderator_id", mod.UID),
		slog.String("kind", string(target)),
		slog.String("suggestion_id", sug.ID),
		slog.String("live_item_id", liveID),
	)

	res := withSuggestion(applied(ActionApprove, "published"), sug.ID)
	res.LiveItemID = liveID
	return res, nil
}

// approveLocal promotes an overlay suggestion without touching the store.
func (s *Service) approveLocal(ctx context.Context, mod domain.Moderator, sug domain.Suggestion) (Result, error) {
	item, ok := s.overlay.Promote(sug.ID, mod, s.now())
	if !ok {
		return withSuggestion(alreadyHandled(ActionApprove, "suggestion no longer exists"), sug.ID), nil
	}

	s.history.record(HistoryEntry{
		Action:       ActionApprove,
		Kind:         sug.Kind(),
		SuggestionID: sug.ID,
		LiveItemID:   item.ID,
		Name:         sug.Content.Base().Name,
		ModeratorID:  mod.UID,
		At:           s.now(),
	})

	s.log.InfoContext(ctx, "local suggestion approved",
		slog.String("moderator_id", mod.UID),
		slog.String("suggestion_id", sug.ID),
	)

	res := withSuggestion(applied(ActionApprove, "published locally"), sug.ID)
	res.LiveItemID = item.ID
	return res, nil
}

func withSuggestion(r Result, id string) Result {
	r.SuggestionID = id
	return r
}
