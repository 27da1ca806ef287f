package moderation

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

// ManualPublish creates a live item directly, without a suggestion.
func (s *Service) ManualPublish(ctx context.Context, mod domain.Moderator, input PublishInput) (Result, error) {
	if err := authorize(mod); err != nil {
		return Result{}, err
	}
	if err := input.Validate(); err != nil {
		return Result{}, err
	}

	item := domain.LiveItem{
		Content:         input.content(),
		Status:          domain.StatusApproved,
		ApprovedBy:      mod.UID,
		ApprovedByEmail: mod.Email,
	}

	ctx, cancel := s.writeContext(ctx)
	defer cancel()

	id, err := s.store.Create(ctx, input.Kind.LiveCollection(), docstore.EncodeLiveItem(item))
	if err != nil {
		return Result{}, storeErr("publish", err)
	}

	s.log.InfoContext(ctx, "item published",
		slog.String("moderator_id", mod.UID),
		slog.String("kind", string(input.Kind)),
		slog.String("live_item_id", id),
	)

	res := applied(ActionPublish, "published")
	res.LiveItemID = id
	return res, nil
}
