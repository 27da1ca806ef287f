package moderation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

// ToggleStar flips the moderator's star on a resource. The current state
// is read from the store, so two toggles always restore the original state.
func (s *Service) ToggleStar(ctx context.Context, mod domain.Moderator, item domain.LiveItem) (Result, error) {
	if err := authorize(mod); err != nil {
		return Result{}, err
	}
	if item.Content == nil || item.ID == "" {
		return Result{}, domain.NewValidationError("item", "required")
	}
	if item.Kind() != domain.ItemKindResource {
		return Result{}, domain.NewValidationError("kind", "only resources can be starred")
	}
	if overlay.IsLocal(item.ID) {
		return Result{}, domain.NewValidationError("id", "local items cannot be starred")
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	starID := domain.StarID(mod.UID, item.ID)

	_, err := s.store.Get(ctx, domain.CollectionStarred, starID)
	switch {
	case err == nil:
		if err := s.store.Delete(ctx, domain.CollectionStarred, starID); err != nil {
			return Result{}, storeErr("unstar", err)
		}
		s.log.InfoContext(ctx, "resource unstarred",
			slog.String("moderator_id", mod.UID),
			slog.String("resource_id", item.ID),
		)
		return starResult(applied(ActionUnstar, "unstarred"), starID, item.ID, false), nil

	case errors.Is(err, domain.ErrNotFound):
		rec := domain.StarRecord{
			ID:          starID,
			ModeratorID: mod.UID,
			ResourceID:  item.ID,
			Snapshot:    item.Content.Base(),
		}
		err := s.store.CreateWithID(ctx, domain.CollectionStarred, starID, docstore.EncodeStar(rec))
		if errors.Is(err, domain.ErrAlreadyExists) {
			return starResult(alreadyHandled(ActionStar, "already starred"), starID, item.ID, true), nil
		}
		if err != nil {
			return Result{}, storeErr("star", err)
		}
		s.log.InfoContext(ctx, "resource starred",
			slog.String("moderator_id", mod.UID),
			slog.String("resource_id", item.ID),
		)
		return starResult(applied(ActionStar, "starred"), starID, item.ID, true), nil

	default:
		return Result{}, storeErr("star: get star record", err)
	}
}

// RemoveStar deletes the moderator's star on resourceID, whether or not the
// resource still exists.
func (s *Service) RemoveStar(ctx context.Context, mod domain.Moderator, resourceID string) (Result, error) {
	if err := authorize(mod); err != nil {
		return Result{}, err
	}
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return Result{}, domain.NewValidationError("resource_id", "required")
	}
	if overlay.IsLocal(resourceID) {
		return Result{}, domain.NewValidationError("resource_id", "local items cannot be starred")
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	starID := domain.StarID(mod.UID, resourceID)
	if err := s.store.Delete(ctx, domain.CollectionStarred, starID); err != nil {
		return Result{}, storeErr("remove star", err)
	}

	s.log.InfoContext(ctx, "star removed",
		slog.String("moderator_id", mod.UID),
		slog.String("resource_id", resourceID),
	)
	return starResult(applied(ActionUnstar, "unstarred"), starID, resourceID, false), nil
}

func starResult(r Result, starID, resourceID string, starred bool) Result {
	r.StarID = starID
	r.LiveItemID = resourceID
	r.Starred = starred
	return r
}
