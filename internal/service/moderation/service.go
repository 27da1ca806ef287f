// Package moderation implements the leader-only transitions of the catalog:
// approving and rejecting suggestions, removing live items, starring
// resources, and publishing items directly.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

const (
	DefaultHistoryLimit = 10
	DefaultWriteTimeout = 10 * time.Second
)

// promotionNamespace seeds the deterministic ids of promoted live items.
var promotionNamespace = uuid.MustParse("7d3c0a52-2f7e-4f0a-9a55-6b1f8e6c2d41")

type documentStore interface {
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	CreateWithID(ctx context.Context, collection, id string, data map[string]any) error
	Update(ctx context.Context, collection, id string, patch map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
}

// Service is the moderation engine. It keeps no document state between
// calls; every decision is re-derived from a fresh read.
type Service struct {
	log          *slog.Logger
	store        documentStore
	overlay      *overlay.Store
	history      *History
	writeTimeout time.Duration
	now          func() time.Time
}

// NewService creates a moderation engine.
func NewService(
	log *slog.Logger,
	store documentStore,
	local *overlay.Store,
	historyLimit int,
	writeTimeout time.Duration,
) *Service {
	if local == nil {
		local = overlay.New()
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Service{
		log:          log.With("service", "moderation"),
		store:        store,
		overlay:      local,
		history:      NewHistory(historyLimit),
		writeTimeout: writeTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// History returns the bounded approval and rejection history.
func (s *Service) History() *History { return s.history }

// PromotionID is the id of the live item created by approving suggestionID.
// It never equals the suggestion id, and concurrent approvals of the same
// suggestion race on it.
func PromotionID(kind domain.ItemKind, suggestionID string) string {
	return uuid.NewSHA1(promotionNamespace, []byte(string(kind)+"/"+suggestionID)).String()
}

func authorize(mod domain.Moderator) error {
	if mod.UID == "" {
		return fmt.Errorf("moderation: %w", domain.ErrUnauthorized)
	}
	if !mod.IsLeader() {
		return fmt.Errorf("moderation: %w", domain.ErrForbidden)
	}
	return nil
}

// writeContext detaches ctx from its caller so a closed view or dropped
// connection cannot abort a write halfway through a promotion.
func (s *Service) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

// storeErr classifies a store failure. Not-found and conflict errors keep
// their identity; anything else is reported as unavailability.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}
