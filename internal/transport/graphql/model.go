package graphql

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/catalog"
	"github.com/heartmarshall/cypress-connect/internal/service/dashboard"
	"github.com/heartmarshall/cypress-connect/internal/service/moderation"
	"github.com/heartmarshall/cypress-connect/internal/transport/graphql/dataloader"
)

// object is a resolved GraphQL object keyed by schema field name. A value
// of type resolver is called only when the field is selected.
type object map[string]any

// resolver computes a field from its arguments.
type resolver func(ctx context.Context, args map[string]any) (any, error)

func enumOf(k domain.ItemKind) string { return strings.ToUpper(k.String()) }

func kindOf(v any) (domain.ItemKind, bool) {
	s, _ := v.(string)
	return domain.ParseItemKind(strings.ToLower(s))
}

func timeOf(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func withFields(o object, c domain.Content) object {
	f := c.Base()
	o["name"] = f.Name
	o["category"] = f.Category
	o["description"] = f.Description
	o["url"] = strPtr(f.URL)
	o["phone"] = strPtr(f.Phone)
	o["imageUrl"] = strPtr(f.ImageURL)
	o["location"] = strPtr(f.Location)
	o["eventDate"] = optional(domain.EventDateOf(c))
	return o
}

func toLiveItem(item domain.LiveItem, starred bool) object {
	return withFields(object{
		"id":                 item.ID,
		"kind":               enumOf(item.Kind()),
		"status":             item.Status.String(),
		"approvedBy":         optional(item.ApprovedBy),
		"publishedAt":        timeOf(item.PublishedAt),
		"sourceSuggestionId": strPtr(item.SourceSuggestionID),
		"starred":            starred,
	}, item.Content)
}

func toLiveItems(in []domain.LiveItem, starred map[string]bool) []any {
	out := make([]any, 0, len(in))
	for _, item := range in {
		out = append(out, toLiveItem(item, starred[item.ID]))
	}
	return out
}

func toSuggestions(in []domain.Suggestion) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, withFields(object{
			"id":          s.ID,
			"kind":        enumOf(s.Kind()),
			"status":      s.Status.String(),
			"suggestedBy": s.SuggestedBy,
			"submittedAt": timeOf(s.SubmittedAt),
		}, s.Content))
	}
	return out
}

// toStars maps star records. The resource field goes through the
// response's loader so every star in a list shares one lookup.
func toStars(in []domain.StarRecord) []any {
	out := make([]any, 0, len(in))
	for _, rec := range in {
		id := rec.ResourceID
		out = append(out, object{
			"id":          rec.ID,
			"moderatorId": rec.ModeratorID,
			"resourceId":  id,
			"name":        rec.Snapshot.Name,
			"category":    rec.Snapshot.Category,
			"starredAt":   timeOf(rec.StarredAt),
			"resource": resolver(func(ctx context.Context, _ map[string]any) (any, error) {
				item, err := dataloader.FromContext(ctx).ResourceByID.Load(ctx, id)()
				if err != nil || item == nil {
					return nil, err
				}
				return toLiveItem(*item, true), nil
			}),
		})
	}
	return out
}

func toCounts(c catalog.Counts) object {
	return object{
		"pending":   c.Pending,
		"resources": c.Resources,
		"events":    c.Events,
		"residents": c.Residents,
	}
}

func toHistory(in []moderation.HistoryEntry) []any {
	out := make([]any, 0, len(in))
	for _, e := range in {
		out = append(out, object{
			"action":       string(e.Action),
			"kind":         enumOf(e.Kind),
			"suggestionId": e.SuggestionID,
			"liveItemId":   optional(e.LiveItemID),
			"name":         e.Name,
			"moderatorId":  e.ModeratorID,
			"at":           e.At,
		})
	}
	return out
}

func toResult(res moderation.Result) object {
	o := object{
		"action":       string(res.Action),
		"outcome":      string(res.Outcome),
		"message":      res.Message,
		"suggestionId": optional(res.SuggestionID),
		"liveItemId":   optional(res.LiveItemID),
		"starId":       optional(res.StarID),
		"starred":      nil,
	}
	if res.Action == moderation.ActionStar || res.Action == moderation.ActionUnstar {
		o["starred"] = res.Starred
	}
	return o
}

func toDashboard(v dashboard.View) object {
	errs := make([]any, 0, len(v.Errors))
	for _, src := range slices.Sorted(maps.Keys(v.Errors)) {
		errs = append(errs, object{"source": string(src), "message": v.Errors[src]})
	}
	return object{
		"version":          v.Version,
		"pendingResources": toSuggestions(v.PendingResources),
		"pendingEvents":    toSuggestions(v.PendingEvents),
		"resources":        toLiveItems(v.Resources, v.StarredIDs),
		"events":           toLiveItems(v.Events, nil),
		"starred":          toStars(v.Starred),
		"counts":           toCounts(v.Counts),
		"recentlyApproved": toHistory(v.RecentlyApproved),
		"recentlyRejected": toHistory(v.RecentlyRejected),
		"errors":           errs,
		"ready":            v.Ready,
	}
}
