// Package operator implements the maintenance tasks run from the command
// line: bootstrapping leaders, sweeping orphaned stars and minting
// development tokens.
package operator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/heartmarshall/cypress-connect/internal/docstore"
	"github.com/heartmarshall/cypress-connect/internal/domain"
)

type tokenIssuer interface {
	GenerateAccessToken(id domain.Moderator) (string, error)
}

// Service runs operator tasks against the document store.
type Service struct {
	log    *slog.Logger
	store  docstore.Store
	tokens tokenIssuer
}

// NewService creates an operator Service. tokens may be nil when no
// token is minted.
func NewService(log *slog.Logger, store docstore.Store, tokens tokenIssuer) *Service {
	return &Service{
		log:    log.With("service", "operator"),
		store:  store,
		tokens: tokens,
	}
}

// ---------------------------------------------------------------------------
// Roster
// ---------------------------------------------------------------------------

// Lookup identifies a roster entry by uid or, when UID is empty, by email.
type Lookup struct {
	UID   string
	Email string
}

func (l Lookup) validate() error {
	if strings.TrimSpace(l.UID) == "" && strings.TrimSpace(l.Email) == "" {
		return domain.NewValidationError("uid", "uid or email required")
	}
	return nil
}

// Find resolves a roster entry.
func (s *Service) Find(ctx context.Context, l Lookup) (domain.RosterEntry, error) {
	if err := l.validate(); err != nil {
		return domain.RosterEntry{}, err
	}

	if uid := strings.TrimSpace(l.UID); uid != "" {
		doc, err := s.store.Get(ctx, domain.CollectionUsers, uid)
		if err != nil {
			return domain.RosterEntry{}, fmt.Errorf("get roster entry: %w", err)
		}
		return docstore.DecodeRosterEntry(doc)
	}

	email := strings.TrimSpace(l.Email)
	docs, err := s.snapshot(ctx, domain.CollectionUsers, docstore.Eq(docstore.FieldEmail, email))
	if err != nil {
		return domain.RosterEntry{}, err
	}
	switch len(docs) {
	case 0:
		return domain.RosterEntry{}, fmt.Errorf("roster entry %s: %w", email, domain.ErrNotFound)
	case 1:
		for _, doc := range docs {
			return docstore.DecodeRosterEntry(doc)
		}
	}
	return domain.RosterEntry{}, fmt.Errorf("roster email %s matches %d entries: %w", email, len(docs), domain.ErrConflict)
}

// Promote makes the entry a leader. It reports false if it already was.
func (s *Service) Promote(ctx context.Context, l Lookup) (domain.RosterEntry, bool, error) {
	entry, err := s.Find(ctx, l)
	if err != nil {
		return domain.RosterEntry{}, false, err
	}
	if entry.Role.IsLeader() {
		return entry, false, nil
	}

	if err := s.store.Update(ctx, domain.CollectionUsers, entry.UID, map[string]any{
		docstore.FieldRole: string(domain.UserRoleLeader),
	}); err != nil {
		return domain.RosterEntry{}, false, fmt.Errorf("promote %s: %w", entry.UID, err)
	}

	entry.Role = domain.UserRoleLeader
	s.log.InfoContext(ctx, "roster entry promoted",
		slog.String("uid", entry.UID),
		slog.String("email", entry.Email),
	)
	return entry, true, nil
}

// IssueToken mints an access token for a roster entry.
func (s *Service) IssueToken(ctx context.Context, l Lookup) (string, domain.RosterEntry, error) {
	if s.tokens == nil {
		return "", domain.RosterEntry{}, fmt.Errorf("issue token: no token issuer configured")
	}
	entry, err := s.Find(ctx, l)
	if err != nil {
		return "", domain.RosterEntry{}, err
	}
	token, err := s.tokens.GenerateAccessToken(entry.Moderator())
	if err != nil {
		return "", domain.RosterEntry{}, fmt.Errorf("issue token: %w", err)
	}
	return token, entry, nil
}

// ---------------------------------------------------------------------------
// Stars
// ---------------------------------------------------------------------------

// SweepResult lists the orphaned star records found by a sweep.
type SweepResult struct {
	Scanned   int
	Orphans   []string
	Deleted   int
	Malformed int
	DryRun    bool
}

// SweepOrphanStars deletes star records whose resource is no longer live.
// Records that fail to decode are left alone and counted as Malformed.
func (s *Service) SweepOrphanStars(ctx context.Context, dryRun bool) (SweepResult, error) {
	stars, err := s.snapshot(ctx, domain.CollectionStarred, nil)
	if err != nil {
		return SweepResult{}, err
	}
	resources, err := s.snapshot(ctx, domain.CollectionResources, nil)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Scanned: len(stars), DryRun: dryRun}
	for id, doc := range stars {
		rec, err := docstore.DecodeStar(doc)
		if err != nil {
			s.log.WarnContext(ctx, "skipping malformed star", slog.String("star_id", id), slog.String("error", err.Error()))
			res.Malformed++
			continue
		}
		if _, ok := resources[rec.ResourceID]; !ok {
			res.Orphans = append(res.Orphans, id)
		}
	}
	sort.Strings(res.Orphans)

	if dryRun {
		return res, nil
	}
	for _, id := range res.Orphans {
		if err := s.store.Delete(ctx, domain.CollectionStarred, id); err != nil {
			return res, fmt.Errorf("delete star %s: %w", id, err)
		}
		res.Deleted++
	}

	s.log.InfoContext(ctx, "orphan stars swept",
		slog.Int("scanned", res.Scanned),
		slog.Int("deleted", res.Deleted),
	)
	return res, nil
}

// snapshot reads the current matching set through a one-shot subscription.
func (s *Service) snapshot(ctx context.Context, collection string, filter *docstore.Filter) (map[string]docstore.Document, error) {
	sub, err := s.store.Subscribe(ctx, collection, filter)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer sub.Close()

	select {
	case ev, ok := <-sub.Events():
		if !ok {
			return nil, fmt.Errorf("read %s: subscription closed: %w", collection, domain.ErrUnavailable)
		}
		if ev.Err != nil {
			return nil, fmt.Errorf("read %s: %w", collection, ev.Err)
		}
		return ev.Docs, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("read %s: %w", collection, ctx.Err())
	}
}
