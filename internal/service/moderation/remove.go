package moderation

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

// Remove permanently deletes a live item. Star records pointing at it are
// left alone; readers skip orphaned stars.
func (s *Service) Remove(ctx context.Context, mod domain.Moderator, item domain.LiveItem) (Result, error) {
	if err := authorize(mod); err != nil {
		return Result{}, err
	}
	if item.Content == nil || item.ID == "" {
		return Result{}, domain.NewValidationError("item", "required")
	}

	res := applied(ActionRemove, "removed")
	res.LiveItemID = item.ID

	if overlay.IsLocal(item.ID) {
		if !s.overlay.RemoveLive(item.ID) {
			res.Outcome = OutcomeAlreadyHandled
			res.Message = "item no longer exists"
		}
		return res, nil
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	if err := s.store.Delete(ctx, item.Kind().LiveCollection(), item.ID); err != nil {
		return Result{}, storeErr("remove live item", err)
	}

	s.log.InfoContext(ctx, "live item removed",
		slog.String("moderator_id", mod.UID),
		slog.String("kind", string(item.Kind())),
		slog.String("live_item_id", item.ID),
	)

	return res, nil
}
