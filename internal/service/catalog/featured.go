package catalog

import (
	"github.com/heartmarshall/cypress-connect/internal/domain"
	"github.com/heartmarshall/cypress-connect/internal/service/aggregator"
	"github.com/heartmarshall/cypress-connect/internal/service/overlay"
)

// Featured joins star records to the live resources they point at. Each
// resource appears once however many moderators starred it; stars whose
// resource was removed are skipped.
func Featured(stars map[string]domain.StarRecord, resources map[string]domain.LiveItem) []domain.LiveItem {
	seen := make(map[string]bool, len(stars))
	out := make([]domain.LiveItem, 0, len(stars))
	for _, rec := range stars {
		if seen[rec.ResourceID] {
			continue
		}
		item, ok := resources[rec.ResourceID]
		if !ok {
			continue
		}
		seen[rec.ResourceID] = true
		out = append(out, item)
	}
	SortByName(out)
	return out
}

// Counts are the aggregate numbers shown on the dashboard and catalog stats.
type Counts struct {
	Pending   int `json:"pending"`
	Resources int `json:"resources"`
	Events    int `json:"events"`
	Residents int `json:"residents"`
}

// CountsOf derives Counts from a snapshot. Residents is the roster size
// minus the viewing leader, never negative.
func CountsOf(s aggregator.Snapshot) Counts {
	return Counts{
		Pending:   len(s.PendingResources) + len(s.PendingEvents),
		Resources: len(s.Resources),
		Events:    len(s.Events),
		Residents: max(len(s.Roster)-1, 0),
	}
}

// Merge returns s with the overlay's pending suggestions and promoted items
// added. s is not modified.
func Merge(s aggregator.Snapshot, local *overlay.Store) aggregator.Snapshot {
	if local == nil {
		return s
	}
	s.PendingResources = local.MergePending(domain.ItemKindResource, s.PendingResources)
	s.PendingEvents = local.MergePending(domain.ItemKindEvent, s.PendingEvents)
	s.Resources = local.MergeLive(domain.ItemKindResource, s.Resources)
	s.Events = local.MergeLive(domain.ItemKindEvent, s.Events)
	return s
}
