package graphql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/catalog"
	"github.com/heartmarshall/cypress-connect/internal/service/dashboard"
	"github.com/heartmarshall/cypress-connect/internal/service/moderation"
	"github.com/heartmarshall/cypress-connect/internal/transport/graphql/dataloader"
	"github.com/heartmarshall/cypress-connect/pkg/ctxutil"
)

const (
	catalogWait   = 5 * time.Second
	dashboardWait = 10 * time.Second
)

// catalogService defines what the resolver needs from the catalog.
type catalogService interface {
	WaitReady(ctx context.Context) error
	Resources(f catalog.Filter) []domain.LiveItem
	Events(f catalog.Filter, when catalog.When) []domain.LiveItem
	Stars() []domain.StarRecord
	ResourcesByID(ids []string) map[string]domain.LiveItem
	Stats() catalog.Counts
}

// moderationEngine defines what the resolver needs from moderation.
type moderationEngine interface {
	Suggestion(ctx context.Context, kind domain.ItemKind, id string) (domain.Suggestion, error)
	LiveItem(ctx context.Context, kind domain.ItemKind, id string) (domain.LiveItem, error)
	Approve(ctx context.Context, mod domain.Moderator, sug domain.Suggestion, target domain.ItemKind) (moderation.Result, error)
	Reject(ctx context.Context, mod domain.Moderator, sug domain.Suggestion) (moderation.Result, error)
	Remove(ctx context.Context, mod domain.Moderator, item domain.LiveItem) (moderation.Result, error)
	ToggleStar(ctx context.Context, mod domain.Moderator, item domain.LiveItem) (moderation.Result, error)
	RemoveStar(ctx context.Context, mod domain.Moderator, resourceID string) (moderation.Result, error)
	ManualPublish(ctx context.Context, mod domain.Moderator, input moderation.PublishInput) (moderation.Result, error)
	History() *moderation.History
}

type dashboardOpener interface {
	Open(ctx context.Context, mod domain.Moderator) (*dashboard.Dashboard, error)
}

// Resolver holds the services behind the GraphQL API.
type Resolver struct {
	log        *slog.Logger
	catalog    catalogService
	engine     moderationEngine
	dashboards dashboardOpener
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger, cat catalogService, engine moderationEngine, dashboards dashboardOpener) *Resolver {
	return &Resolver{
		log:        logger.With("handler", "graphql"),
		catalog:    cat,
		engine:     engine,
		dashboards: dashboards,
	}
}

func (r *Resolver) query() object {
	return object{
		"resources":  resolver(r.resources),
		"events":     resolver(r.events),
		"featured":   resolver(r.featured),
		"stars":      resolver(r.stars),
		"categories": resolver(r.categories),
		"stats":      resolver(r.stats),
		"dashboard":  resolver(r.dashboard),
		"history":    resolver(r.history),
	}
}

func (r *Resolver) mutation() object {
	return object{
		"approveSuggestion": resolver(r.approveSuggestion),
		"rejectSuggestion":  resolver(r.rejectSuggestion),
		"publishItem":       resolver(r.publishItem),
		"removeItem":        resolver(r.removeItem),
		"toggleStar":        resolver(r.toggleStar),
		"removeStar":        resolver(r.removeStar),
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (r *Resolver) resources(ctx context.Context, args map[string]any) (any, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	return toLiveItems(r.catalog.Resources(filterOf(args)), nil), nil
}

func (r *Resolver) events(ctx context.Context, args map[string]any) (any, error) {
	s, _ := args["when"].(string)
	when, ok := catalog.ParseWhen(s)
	if !ok {
		return nil, domain.NewValidationError("when", "must be upcoming, archived or all")
	}
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	return toLiveItems(r.catalog.Events(filterOf(args), when), nil), nil
}

// featured joins stars to live resources through the loader. Each resource
// appears once; stars on removed resources are skipped.
func (r *Resolver) featured(ctx context.Context, _ map[string]any) (any, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]bool)
	for _, rec := range r.catalog.Stars() {
		if !seen[rec.ResourceID] {
			seen[rec.ResourceID] = true
			ids = append(ids, rec.ResourceID)
		}
	}

	loaded, errs := dataloader.FromContext(ctx).ResourceByID.LoadMany(ctx, ids)()
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("load featured: %w", err)
	}

	items := make([]domain.LiveItem, 0, len(loaded))
	for _, item := range loaded {
		if item != nil {
			items = append(items, *item)
		}
	}
	catalog.SortByName(items)
	return toLiveItems(items, nil), nil
}

func (r *Resolver) stars(ctx context.Context, _ map[string]any) (any, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	return toStars(r.catalog.Stars()), nil
}

func (r *Resolver) categories(_ context.Context, _ map[string]any) (any, error) {
	return object{
		"all":       domain.CategoryAll,
		"resources": stringsOf(domain.ResourceCategories),
		"events":    stringsOf(domain.EventCategories),
	}, nil
}

func (r *Resolver) stats(ctx context.Context, _ map[string]any) (any, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	return toCounts(r.catalog.Stats()), nil
}

func (r *Resolver) dashboard(ctx context.Context, _ map[string]any) (any, error) {
	d, err := r.dashboards.Open(ctx, moderatorFrom(ctx))
	if err != nil {
		return nil, err
	}
	defer d.Close()

	waitCtx, cancel := context.WithTimeout(ctx, dashboardWait)
	defer cancel()

	v, err := d.WaitReady(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return toDashboard(v), nil
}

func (r *Resolver) history(ctx context.Context, _ map[string]any) (any, error) {
	if _, err := requireLeader(ctx); err != nil {
		return nil, err
	}
	hist := r.engine.History()
	return object{
		"approved": toHistory(hist.Approved()),
		"rejected": toHistory(hist.Rejected()),
	}, nil
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

func (r *Resolver) approveSuggestion(ctx context.Context, args map[string]any) (any, error) {
	mod, kind, sug, err := r.suggestionFrom(ctx, args)
	if err != nil {
		return nil, err
	}
	return resultOf(r.engine.Approve(ctx, mod, sug, kind))
}

func (r *Resolver) rejectSuggestion(ctx context.Context, args map[string]any) (any, error) {
	mod, _, sug, err := r.suggestionFrom(ctx, args)
	if err != nil {
		return nil, err
	}
	return resultOf(r.engine.Reject(ctx, mod, sug))
}

func (r *Resolver) publishItem(ctx context.Context, args map[string]any) (any, error) {
	mod, err := requireLeader(ctx)
	if err != nil {
		return nil, err
	}
	in, _ := args["input"].(map[string]any)
	kind, ok := kindOf(in["kind"])
	if !ok {
		return nil, domain.NewValidationError("kind", "must be RESOURCE or EVENT")
	}

	input := moderation.PublishInput{
		Kind:        kind,
		Name:        stringArg(in, "name"),
		Category:    stringArg(in, "category"),
		Description: stringArg(in, "description"),
		Location:    stringArg(in, "location"),
		EventDate:   stringArg(in, "eventDate"),
		URL:         optionalArg(in, "url"),
		Phone:       optionalArg(in, "phone"),
		ImageURL:    optionalArg(in, "imageUrl"),
	}
	return resultOf(r.engine.ManualPublish(ctx, mod, input))
}

func (r *Resolver) removeItem(ctx context.Context, args map[string]any) (any, error) {
	mod, err := requireLeader(ctx)
	if err != nil {
		return nil, err
	}
	kind, ok := kindOf(args["kind"])
	if !ok {
		return nil, domain.NewValidationError("kind", "must be RESOURCE or EVENT")
	}
	item, err := r.engine.LiveItem(ctx, kind, stringArg(args, "id"))
	if err != nil {
		return nil, err
	}
	return resultOf(r.engine.Remove(ctx, mod, item))
}

func (r *Resolver) toggleStar(ctx context.Context, args map[string]any) (any, error) {
	mod, err := requireLeader(ctx)
	if err != nil {
		return nil, err
	}
	item, err := r.engine.LiveItem(ctx, domain.ItemKindResource, stringArg(args, "resourceId"))
	if err != nil {
		return nil, err
	}
	return resultOf(r.engine.ToggleStar(ctx, mod, item))
}

func (r *Resolver) removeStar(ctx context.Context, args map[string]any) (any, error) {
	mod, err := requireLeader(ctx)
	if err != nil {
		return nil, err
	}
	return resultOf(r.engine.RemoveStar(ctx, mod, stringArg(args, "resourceId")))
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Resolver) suggestionFrom(ctx context.Context, args map[string]any) (domain.Moderator, domain.ItemKind, domain.Suggestion, error) {
	mod, err := requireLeader(ctx)
	if err != nil {
		return mod, "", domain.Suggestion{}, err
	}
	kind, ok := kindOf(args["kind"])
	if !ok {
		return mod, "", domain.Suggestion{}, domain.NewValidationError("kind", "must be RESOURCE or EVENT")
	}
	sug, err := r.engine.Suggestion(ctx, kind, stringArg(args, "id"))
	if err != nil {
		return mod, "", domain.Suggestion{}, err
	}
	return mod, kind, sug, nil
}

// ready waits briefly for the first catalog load.
func (r *Resolver) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, catalogWait)
	defer cancel()

	if err := r.catalog.WaitReady(ctx); err != nil {
		return fmt.Errorf("catalog is loading: %w", domain.ErrUnavailable)
	}
	return nil
}

func resultOf(res moderation.Result, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return toResult(res), nil
}

// moderatorFrom turns the request identity into the explicit actor passed
// to services.
func moderatorFrom(ctx context.Context) domain.Moderator {
	id, ok := ctxutil.IdentityFromCtx(ctx)
	if !ok {
		return domain.Moderator{}
	}
	return domain.Moderator{UID: id.UID, Email: id.Email, Role: domain.UserRole(id.Role)}
}

func requireLeader(ctx context.Context) (domain.Moderator, error) {
	mod := moderatorFrom(ctx)
	switch {
	case mod.UID == "":
		return mod, domain.ErrUnauthorized
	case !mod.IsLeader():
		return mod, domain.ErrForbidden
	}
	return mod, nil
}

func filterOf(args map[string]any) catalog.Filter {
	f, _ := args["filter"].(map[string]any)
	return catalog.Filter{Search: stringArg(f, "search"), Category: stringArg(f, "category")}
}

func stringArg(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func optionalArg(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func stringsOf(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
