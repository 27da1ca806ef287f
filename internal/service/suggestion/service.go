// Package suggestion accepts resident submissions into the moderation queue.
package suggestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

type documentCreator interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
}

// Service writes new pending suggestions.
type Service struct {
	log   *slog.Logger
	store documentCreator
}

// NewService creates a suggestion intake service.
func NewService(logger *slog.Logger, store documentCreator) *Service {
	return &Service{
		log:   logger.With("service", "suggestion"),
		store: store,
	}
}

// Submit validates input and stores it as a pending suggestion attributed
// to submitter. Any signed-in user may submit.
func (s *Service) Submit(ctx context.Context, submitter domain.Moderator, input SubmitInput) (domain.Suggestion, error) {
	if submitter.UID == "" {
		return domain.Suggestion{}, fmt.Errorf("submit suggestion: %w", domain.ErrUnauthorized)
	}
	if err := input.Validate(); err != nil {
		return domain.Suggestion{}, err
	}

	sug := domain.Suggestion{
		Content:          input.content(),
		Status:           domain.StatusPending,
		SuggestedBy:      submitter.UID,
		SuggestedByEmail: submitter.Email,
	}

	id, err := s.store.Create(ctx, input.Kind.SuggestionCollection(), docstore.EncodeSuggestion(sug))
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("submit suggestion: %w", err)
	}
	sug.ID = id

	s.log.InfoContext(ctx, "suggestion submitted",
		slog.String("user_id", submitter.UID),
		slog.String("kind", string(input.Kind)),
		slog.String("suggestion_id", id),
	)
	return sug, nil
}
